package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HTTPFetcher fetches over plain HTTP and falls back to a Renderer for thin pages.
type HTTPFetcher struct {
	opts   *Options
	render Renderer
	logger *zap.Logger
	now    func() time.Time
}

// NewHTTPFetcher creates a fetcher. render may be nil to disable the browser fallback.
func NewHTTPFetcher(opts *Options, render Renderer, logger *zap.Logger) *HTTPFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{opts: opts, render: render, logger: logger, now: time.Now}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	content, noise := SelectorsFor(urlStr)

	res, err := URL(ctx, urlStr, f.opts)
	if err != nil {
		return nil, err
	}

	title, text, err := ExtractMainText(res.HTML, content, noise...)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract text", StatusCode: res.StatusCode, Cause: err}
	}

	page := &Page{
		URL:        urlStr,
		Title:      title,
		Text:       text,
		StatusCode: res.StatusCode,
		FetchedAt:  f.now(),
	}

	if f.render != nil && ShouldUseBrowser(text) {
		html, rerr := f.render(ctx, urlStr)
		if rerr != nil {
			f.logger.Debug("browser fallback failed", zap.String("url", urlStr), zap.Error(rerr))
			return page, nil
		}
		if rtitle, rtext, xerr := ExtractMainText(html, content, noise...); xerr == nil && len(rtext) > len(text) {
			page.Text = rtext
			if rtitle != "" {
				page.Title = rtitle
			}
			page.Rendered = true
		}
	}

	return page, nil
}
