package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// Renderer fetches JS-heavy pages through a headless browser. Screener
// and IR sites occasionally hide their document lists behind scripted
// rendering; plain HTTP sees an empty shell. The browser starts lazily
// on first use and is reused across runs.
type Renderer struct {
	userAgent string
	wait      time.Duration
	logger    arbor.ILogger

	mu         sync.Mutex
	browserCtx context.Context
	cancels    []context.CancelFunc
	started    bool
}

// NewRenderer prepares a renderer without launching a browser.
func NewRenderer(userAgent string, wait time.Duration, logger arbor.ILogger) *Renderer {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &Renderer{
		userAgent: userAgent,
		wait:      wait,
		logger:    logger,
	}
}

// Render navigates to a URL, waits for scripts to settle and returns
// the rendered HTML.
func (r *Renderer) Render(ctx context.Context, rawURL string) (string, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return "", err
	}

	pageCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var timeoutCancel context.CancelFunc
		pageCtx, timeoutCancel = context.WithDeadline(pageCtx, deadline)
		defer timeoutCancel()
	}

	// Watch the main-document response so error pages fail the render
	// instead of returning a rendered 404 shell.
	var docStatus int64
	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && docStatus == 0 {
				docStatus = resp.Response.Status
			}
		}
	})

	var html string
	err = chromedp.Run(pageCtx,
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.Sleep(r.wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser render of %s failed: %w", rawURL, err)
	}
	if docStatus >= 400 {
		return "", fmt.Errorf("browser render of %s got status %d", rawURL, docStatus)
	}

	r.logger.Debug().
		Str("url", rawURL).
		Int("bytes", len(html)).
		Int64("status", docStatus).
		Msg("Rendered page with headless browser")
	return html, nil
}

// browser starts the shared headless instance on first use.
func (r *Renderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return r.browserCtx, nil
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// Startup probe so a missing Chrome binary surfaces here, not on
	// the first real page.
	probeCtx, probeCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer probeCancel()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("headless browser failed to start: %w", err)
	}

	r.browserCtx = browserCtx
	r.cancels = []context.CancelFunc{browserCancel, allocatorCancel}
	r.started = true

	r.logger.Info().Str("user_agent", r.userAgent).Msg("Headless browser started")
	return r.browserCtx, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
	r.started = false
}
