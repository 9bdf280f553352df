// Package fetch retrieves web pages and reduces them to readable text for
// the content_enrich phase.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds one HTTP request
	DefaultTimeout = 20 * time.Second
	// DefaultUserAgent identifies the fetcher to remote sites
	DefaultUserAgent = "Mozilla/5.0 (compatible; FitAgent/1.0)"
	// DefaultMaxBodyBytes caps how much of a response body is read
	DefaultMaxBodyBytes = 4 << 20
)

// Page is the extracted content of one URL
type Page struct {
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	Text       string    `json:"text"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
	Rendered   bool      `json:"rendered,omitempty"`
	FromCache  bool      `json:"-"`
	Stale      bool      `json:"-"`
}

// Fetcher turns a URL into extracted page text
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Result is a raw HTTP response body
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error is a failed fetch. Invalid marks failures that retrying can never fix.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Invalid    bool
	Cause      error
}

func (e *Error) Error() string {
	msg := "fetch " + e.URL + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// PageFault reports whether the failure belongs to the page (bad URL,
// unsupported content, 4xx other than 429) rather than to the network or the
// remote service.
func (e *Error) PageFault() bool {
	if e.Invalid {
		return true
	}
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// Options configures the fetch behavior.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64
	Client       *http.Client
}

// DefaultOptions returns the stock fetch settings
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: o.Timeout}
}

func (o *Options) limit() int64 {
	if o.MaxBodyBytes > 0 {
		return o.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (o *Options) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8")
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// textual reports whether a Content-Type can hold readable page text. A
// missing header is given the benefit of the doubt.
func textual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return strings.HasPrefix(mt, "text/") || mt == "application/xhtml+xml"
}

// URL performs a GET and returns the body. Non-200 responses return the
// partial Result together with an *Error carrying the status.
func URL(ctx context.Context, target string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &Error{URL: target, Message: "invalid URL", Invalid: true, Cause: err}
	}

	req, err := opts.newRequest(ctx, target)
	if err != nil {
		return nil, &Error{URL: target, Message: "build request", Invalid: true, Cause: err}
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, &Error{URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	result := &Result{
		URL:         target,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode == http.StatusOK && !textual(result.ContentType) {
		return result, &Error{
			URL:        target,
			Message:    "unsupported content type " + result.ContentType,
			StatusCode: resp.StatusCode,
			Invalid:    true,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.limit()))
	if err != nil {
		return nil, &Error{URL: target, Message: "read body", StatusCode: resp.StatusCode, Cause: err}
	}
	result.HTML = string(body)

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:        target,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	return result, nil
}

// boilerplate is removed from every page before extraction.
const boilerplate = "nav, footer, header, script, style, noscript, svg, iframe, " +
	".ad, .ads, .advertisement, .sidebar, .cookie-banner, .popup"

// ExtractMainText returns the page title and the text of the first element
// matching contentSelectors, falling back to <body>. Noise selectors are
// removed first.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse HTML: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find(boilerplate).Remove()
	if len(noiseSelectors) > 0 {
		doc.Find(strings.Join(noiseSelectors, ", ")).Remove()
	}

	content := doc.Find("body")
	for _, sel := range contentSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			content = found.First()
			break
		}
	}
	return title, cleanWhitespace(content.Text()), nil
}

var (
	genericSelectors = []string{"main", "article", ".content", "#content", ".main-content", "#main-content"}
	companySelectors = []string{"main", "article", ".about-content", ".values-content", ".culture-content", ".content", "#content"}
)

// DefaultTextSelectors returns content selectors for arbitrary pages
func DefaultTextSelectors() []string {
	return slices.Clone(genericSelectors)
}

// CompanyPageSelectors returns content selectors for about, values and culture pages
func CompanyPageSelectors() []string {
	return slices.Clone(companySelectors)
}

// cleanWhitespace collapses runs of spaces and drops blank lines.
func cleanWhitespace(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(fields, " "))
	}
	return b.String()
}
