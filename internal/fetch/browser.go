package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser that hands out tabs.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// ChromeLauncher launches headless Chrome through chromedp.
type ChromeLauncher struct {
	ExecPath string // empty uses the chromedp lookup
}

// Launch starts a headless Chrome process.
func (l ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(DefaultUserAgent),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}

	// The allocator outlives the launch call, so it must not inherit ctx cancellation.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser process.
	if err := run(ctx, browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return &chromeBrowser{ctx: browserCtx, cancel: cancelBrowser, cancelAlloc: cancelAlloc}, nil
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := run(ctx, tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

func (b *chromeBrowser) Close() error {
	defer b.cancelAlloc()
	defer b.cancel()
	return chromedp.Cancel(b.ctx)
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return run(ctx, p.ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := run(ctx, p.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *chromePage) Close() error {
	defer p.cancel()
	return chromedp.Cancel(p.ctx)
}

// run executes actions on target while honoring the caller's ctx, so a
// request deadline interrupts a long navigation without tearing down the tab.
func run(ctx, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// BrowserFetcher renders pages in a headless browser and returns their text.
type BrowserFetcher struct {
	launcher Launcher
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// NewBrowserFetcher creates a BrowserFetcher. A zero timeout means DefaultTimeout.
func NewBrowserFetcher(launcher Launcher, timeout time.Duration, logger *zap.SugaredLogger) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &BrowserFetcher{launcher: launcher, timeout: timeout, logger: logger}
}

// PageText launches a browser, renders url and returns the visible page text.
// The page and browser are closed on every path; close failures are logged
// and do not replace the returned error.
func (f *BrowserFetcher) PageText(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	browser, err := f.launcher.Launch(ctx)
	if err != nil {
		return "", &Error{URL: url, Message: "browser launch failed", Cause: err}
	}
	defer f.release("browser", url, browser.Close)

	page, err := browser.NewPage(ctx)
	if err != nil {
		return "", &Error{URL: url, Message: "page open failed", Cause: err}
	}
	defer f.release("page", url, page.Close)

	if err := page.Navigate(ctx, url); err != nil {
		return "", &Error{URL: url, Message: "navigation failed", Cause: err}
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return "", &Error{URL: url, Message: "reading page content failed", Cause: err}
	}
	text, err := ExtractText(html)
	if err != nil {
		return "", &Error{URL: url, Message: "text extraction failed", Cause: err}
	}
	return text, nil
}

func (f *BrowserFetcher) release(handle, url string, closeFn func() error) {
	if err := closeFn(); err != nil {
		f.logger.Warnw("Failed to close browser handle", "handle", handle, "url", url, "error", err)
	}
}
