package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in a headless browser before returning their
// HTML. Slower than the proxy but survives sources that assemble their
// listings client-side.
type ChromeFetcher struct {
	execPath string
	timeout  time.Duration
}

// NewChromeFetcher creates a ChromeFetcher. execPath may be empty to use the
// browser found on PATH.
func NewChromeFetcher(execPath string, timeout time.Duration) *ChromeFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeFetcher{execPath: execPath, timeout: timeout}
}

// Fetch navigates to rawURL and returns the rendered document HTML.
func (f *ChromeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(rawURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
