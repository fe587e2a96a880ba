package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080

	idleWindow   = 500 * time.Millisecond
	idlePollTick = 100 * time.Millisecond
)

// chromedpDriver launches headless Chrome processes via chromedp with
// hardened container-friendly flags.
type chromedpDriver struct {
	userAgent string
}

func newChromedpDriver(userAgent string) *chromedpDriver {
	return &chromedpDriver{userAgent: userAgent}
}

func (d *chromedpDriver) Launch(ctx context.Context) (handle, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Warm up: starts the Chrome process and fails fast if the binary is
	// missing or cannot start.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	select {
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser launch: %w", ctx.Err())
	default:
	}

	return &chromedpHandle{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		userAgent:     d.userAgent,
	}, nil
}

// chromedpHandle is one live Chrome process plus its allocator.
type chromedpHandle struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	userAgent     string
}

// Alive reports whether the browser process is still connected. When Chrome
// dies the browser context is canceled, so a live context means a live
// process.
func (h *chromedpHandle) Alive() bool {
	return h.browserCtx.Err() == nil
}

func (h *chromedpHandle) Close() error {
	h.browserCancel()
	h.allocCancel()
	return nil
}

// NewSession opens a fresh tab with the fixed viewport and user agent and
// wires up the load-event and network listeners before anything runs in it.
func (h *chromedpHandle) NewSession() (Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(h.browserCtx)

	s := &chromedpSession{
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		loadFired: make(chan struct{}),
		tracker:   newNetworkTracker(),
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if h.userAgent == "" {
				return nil
			}
			return setUserAgent(ctx, h.userAgent)
		}),
	); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return s, nil
}

// chromedpSession is one tab in the shared browser.
type chromedpSession struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	loadOnce  sync.Once
	loadFired chan struct{}
	tracker   *networkTracker
}

func (s *chromedpSession) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventLoadEventFired:
		s.loadOnce.Do(func() { close(s.loadFired) })
	case *network.EventRequestWillBeSent:
		s.tracker.started(e.RequestID)
	case *network.EventLoadingFinished:
		s.tracker.finished(e.RequestID)
	case *network.EventLoadingFailed:
		s.tracker.finished(e.RequestID)
	}
}

// run executes chromedp actions on the tab, canceling the in-flight call
// (but not the tab) when the caller's ctx expires.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate starts navigation and returns once it commits; resource loading
// and rendering are handled by the later pipeline stages.
func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		if errText != "" {
			return fmt.Errorf("navigate: %s", errText)
		}
		return nil
	}))
}

func (s *chromedpSession) WaitLoad(ctx context.Context) error {
	select {
	case <-s.loadFired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.tabCtx.Done():
		return fmt.Errorf("tab closed: %w", s.tabCtx.Err())
	}
}

func (s *chromedpSession) WaitNetworkIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollTick)
	defer ticker.Stop()
	for {
		if s.tracker.quiet(idleWindow) {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.tabCtx.Done():
			return fmt.Errorf("tab closed: %w", s.tabCtx.Err())
		}
	}
}

func (s *chromedpSession) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

func (s *chromedpSession) Screenshot(ctx context.Context, opts CaptureOptions) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormat(opts.Format))
		if opts.FullPage {
			params = params.WithCaptureBeyondViewport(true).WithFromSurface(true)
		}
		if opts.Format == "jpeg" || opts.Format == "webp" {
			params = params.WithQuality(int64(opts.Quality))
		}
		res, err := params.Do(ctx)
		if err != nil {
			return fmt.Errorf("capture screenshot: %w", err)
		}
		buf = res
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *chromedpSession) Close() error {
	s.tabCancel()
	return nil
}

// networkTracker counts in-flight requests on one tab so the session can
// tell when the network has gone quiet.
type networkTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{
		inflight: make(map[network.RequestID]struct{}),
		last:     time.Now(),
	}
}

func (t *networkTracker) started(id network.RequestID) {
	t.mu.Lock()
	t.inflight[id] = struct{}{}
	t.last = time.Now()
	t.mu.Unlock()
}

func (t *networkTracker) finished(id network.RequestID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.last = time.Now()
	t.mu.Unlock()
}

// quiet reports whether no request has been in flight for at least window.
func (t *networkTracker) quiet(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && time.Since(t.last) >= window
}

func setUserAgent(ctx context.Context, ua string) error {
	if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
		return fmt.Errorf("set user-agent: %w", err)
	}
	return nil
}

// forwardCancel propagates cancellation from parent onto cancel until the
// returned stop function is called.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
