package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the extracted text length, in runes, below which a
// page is treated as client-rendered and retried in a browser.
const MinContentLength = 500

// DefaultBrowserTimeout bounds one headless render
const DefaultBrowserTimeout = 30 * time.Second

// settleDelay lets client-side frameworks finish hydrating after load.
const settleDelay = 2 * time.Second

// ShouldUseBrowser reports whether text is too thin to be a server-rendered page.
func ShouldUseBrowser(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < MinContentLength
}

// Renderer returns the HTML of a page after scripts have run
type Renderer func(ctx context.Context, url string) (string, error)

// Browser renders pages in a fresh headless Chrome per call.
type Browser struct {
	timeout time.Duration
	settle  time.Duration
	opts    []chromedp.ExecAllocatorOption
	logger  *zap.Logger
}

// NewBrowser configures headless rendering. Chrome or Chromium must be installed.
func NewBrowser(timeout time.Duration, logger *zap.Logger) *Browser {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(DefaultUserAgent),
	)
	return &Browser{timeout: timeout, settle: settleDelay, opts: opts, logger: logger}
}

// ChromeRenderer returns a Renderer backed by a new Browser.
func ChromeRenderer(timeout time.Duration, logger *zap.Logger) Renderer {
	return NewBrowser(timeout, logger).Render
}

// Render navigates to url and returns the document's outer HTML.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	start := time.Now()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	b.logger.Debug("rendered page",
		zap.String("url", url),
		zap.Int("bytes", len(html)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return html, nil
}
