package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// HeadlessFetcher renders a page in headless Chrome before extracting its
// text. Needed for job boards that assemble the posting client-side, where
// a plain GET returns an empty shell.
type HeadlessFetcher struct {
	timeout time.Duration
}

// NewHeadlessFetcher creates a headless fetcher with the given per-fetch timeout.
func NewHeadlessFetcher(timeout time.Duration) *HeadlessFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HeadlessFetcher{timeout: timeout}
}

// FetchText navigates to the URL and returns the rendered page's visible text.
func (f *HeadlessFetcher) FetchText(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var rendered string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		return "", fmt.Errorf("headless fetch failed: %w", err)
	}

	return ExtractText(rendered), nil
}

// Ensure HeadlessFetcher implements Fetcher.
var _ Fetcher = (*HeadlessFetcher)(nil)
