package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserGetter renders pages in a headless Chrome and returns the final DOM
// as HTML. Used for sources that build their listings client-side.
//
// The browser process starts on the first Get and lives until Close. Pages
// are rendered one at a time, each in a fresh tab.
type BrowserGetter struct {
	timeout   time.Duration
	settle    time.Duration
	userAgent string
	logger    *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewBrowserGetter creates a getter. timeout bounds one page render; settle
// is how long to wait after the body is ready for scripts to fill it in.
func NewBrowserGetter(timeout, settle time.Duration, userAgent string, logger *slog.Logger) *BrowserGetter {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &BrowserGetter{
		timeout:   timeout,
		settle:    settle,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Get navigates to url and returns the rendered document.
func (b *BrowserGetter) Get(ctx context.Context, url string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		b.start()
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	reqCtx, cancel := context.WithTimeout(tabCtx, b.timeout)
	defer cancel()
	// The tab derives from the browser context, so tie it to the caller too.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("render %s: %w", url, ctx.Err())
		}
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return []byte(html), nil
}

func (b *BrowserGetter) start() {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(b.userAgent),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	b.browserCtx = browserCtx
	b.cancelAlloc = cancelAlloc
	b.cancelBrowser = cancelBrowser
	b.logger.Debug("headless browser started")
}

// Close shuts the browser down. Safe to call when it never started.
func (b *BrowserGetter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx == nil {
		return nil
	}
	b.cancelBrowser()
	b.cancelAlloc()
	b.browserCtx = nil
	return nil
}
