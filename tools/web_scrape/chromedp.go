package web_scrape

import (
	"context"

	"github.com/chromedp/chromedp"
)

// chromedpFetcher renders pages in headless Chrome before extraction,
// for sites that assemble their content client-side.
type chromedpFetcher struct {
	ua string
}

func (f chromedpFetcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.ua),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var body string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
	)
	return body, err
}
