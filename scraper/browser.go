package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mallcatalog/utils"
)

// BrowserOptions configures the headless browser fetcher
type BrowserOptions struct {
	UserAgent         string
	NavigationTimeout time.Duration
	Settle            time.Duration // extra wait after the body is ready, for client-side rendering
	ExecPath          string        // optional Chrome binary; empty means chromedp's lookup
}

// BrowserFetcher renders pages in headless Chrome before handing back the DOM
type BrowserFetcher struct {
	opts   BrowserOptions
	logger *utils.Logger
}

// NewBrowserFetcher creates a BrowserFetcher
func NewBrowserFetcher(opts BrowserOptions, logger *utils.Logger) *BrowserFetcher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 45 * time.Second
	}
	return &BrowserFetcher{opts: opts, logger: logger}
}

func (f *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.Flag("lang", "ko-KR"),
		chromedp.UserAgent(f.opts.UserAgent),
		chromedp.WindowSize(1280, 900),
	)
	if f.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ExecPath))
	}
	return opts
}

// withBrowser starts one browser with one tab, runs fn against it and tears both down
// on every exit path.
func (f *BrowserFetcher) withBrowser(ctx context.Context, fn func(ctx context.Context) error) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	// the first Run launches the browser; keep it on the tab context so the navigation
	// timeout below cannot take the browser down with it
	if err := chromedp.Run(tabCtx); err != nil {
		return fmt.Errorf("browser start failed: %w", err)
	}
	return fn(tabCtx)
}

func (f *BrowserFetcher) Fetch(ctx context.Context, target Target) (*Page, error) {
	ctx, span := tracer.Start(ctx, "BrowserFetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target.URL))

	var (
		html     string
		finalURL string
		status   atomic.Int64
	)

	err := f.withBrowser(ctx, func(ctx context.Context) error {
		navCtx, cancel := context.WithTimeout(ctx, f.opts.NavigationTimeout)
		defer cancel()

		chromedp.ListenTarget(navCtx, func(ev interface{}) {
			if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
				// the main document arrives before any frame documents
				status.CompareAndSwap(0, resp.Response.Status)
			}
		})

		f.logger.Debug("Rendering %s", target.URL)
		return chromedp.Run(navCtx,
			network.Enable(),
			chromedp.Navigate(target.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(f.opts.Settle),
			chromedp.Location(&finalURL),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	})

	code := int(status.Load())
	span.SetAttributes(attribute.Int("status", code))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return nil, &FetchError{URL: target.URL, Status: code, Cause: err}
	}
	if code != 0 && (code < 200 || code > 299) {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, &FetchError{URL: target.URL, Status: code, Cause: fmt.Errorf("document status %d", code)}
	}
	if finalURL == "" {
		finalURL = target.URL
	}

	return &Page{HTML: html, FinalURL: finalURL, Status: code}, nil
}
