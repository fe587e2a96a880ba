package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/telemetry"
)

// Config controls the shared browser pool.
type Config struct {
	// MaxConcurrent caps how many sessions may be open at once.
	MaxConcurrent int
	// UserAgent is applied to every session.
	UserAgent string
}

// Pool owns one long-lived browser process and issues short-lived isolated
// sessions under a concurrency cap. It detects a dead browser process and
// relaunches it, with the relaunch serialized across callers.
type Pool struct {
	drv    driver
	logger *zap.Logger
	sem    chan struct{}

	mu      sync.Mutex // guards browser (re)launch and teardown
	browser handle
}

// NewPool creates a pool backed by headless Chrome.
func NewPool(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent must be > 0")
	}
	return newPool(newChromedpDriver(cfg.UserAgent), cfg.MaxConcurrent, logger), nil
}

func newPool(drv driver, maxConcurrent int, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		drv:    drv,
		logger: logger,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Start launches the browser process. A launch failure here is fatal for
// the service: there is no point accepting requests without an engine.
func (p *Pool) Start(ctx context.Context) error {
	h, err := p.drv.Launch(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	p.mu.Lock()
	p.browser = h
	p.mu.Unlock()
	p.logger.Info("browser pool started", zap.Int("max_concurrent", cap(p.sem)))
	return nil
}

// Stop closes the browser. Best-effort and idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			p.logger.Debug("browser close", zap.Error(err))
		}
		p.browser = nil
	}
	p.logger.Info("browser pool stopped")
}

// Lease is one acquired session plus its concurrency slot. The caller owns
// it exclusively between Acquire and Release and must always release it.
type Lease struct {
	Session Session
}

// Acquire blocks until a concurrency slot is free, then opens a fresh
// isolated session. If session creation fails it discards the browser,
// relaunches, and retries exactly once; if the retry also fails the slot is
// released before the error is returned, so a caller never holds a slot
// without a usable session.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser slot: %w", ctx.Err())
	}

	sess, err := p.openSession(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	return &Lease{Session: sess}, nil
}

// Release closes the leased session and frees its slot. The slot is freed
// unconditionally, whatever the close does: leaking a slot would shrink
// capacity for the lifetime of the process.
func (p *Pool) Release(l *Lease) {
	defer func() { <-p.sem }()
	if l == nil || l.Session == nil {
		return
	}
	if err := l.Session.Close(); err != nil {
		p.logger.Debug("session already closed", zap.Error(err))
	}
}

func (p *Pool) openSession(ctx context.Context) (Session, error) {
	for attempt := 0; attempt < 2; attempt++ {
		h, err := p.ensureBrowser(ctx)
		if err != nil {
			return nil, err
		}
		sess, err := h.NewSession()
		if err == nil {
			return sess, nil
		}
		if attempt == 0 {
			p.logger.Warn("session creation failed, relaunching browser", zap.Error(err))
			p.discardBrowser()
			continue
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return nil, fmt.Errorf("create session: retries exhausted")
}

// ensureBrowser returns a live browser handle, relaunching under the mutex
// if the current one is absent or disconnected. Concurrent callers that
// detect a dead browser at the same time serialize here, so only one
// relaunch ever happens at a time.
func (p *Pool) ensureBrowser(ctx context.Context) (handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil && p.browser.Alive() {
		return p.browser, nil
	}
	if p.browser != nil {
		p.logger.Warn("browser disconnected, relaunching")
		if err := p.browser.Close(); err != nil {
			p.logger.Debug("stale browser close", zap.Error(err))
		}
		p.browser = nil
	}
	h, err := p.drv.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("relaunch browser: %w", err)
	}
	telemetry.ObserveBrowserRelaunch()
	p.browser = h
	return h, nil
}

func (p *Pool) discardBrowser() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			p.logger.Debug("browser close", zap.Error(err))
		}
		p.browser = nil
	}
}
