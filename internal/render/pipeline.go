package render

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/browser"
)

// maxPostLoadDelay is a hard ceiling on the settle delay, applied after
// combining the caller-requested and configured values. It holds
// regardless of configuration.
const maxPostLoadDelay = 10 * time.Second

// PipelineConfig holds the per-stage budgets of the readiness pipeline.
// Only NavigationTimeout guards a hard failure; every other budget is
// advisory and degrades to continue-with-best-effort on expiry.
type PipelineConfig struct {
	NavigationTimeout    time.Duration
	LoadTimeout          time.Duration
	ProbeBudget          time.Duration
	ProbeInterval        time.Duration
	ProbeSettle          time.Duration
	NetworkIdleTimeout   time.Duration
	ScrollTimeout        time.Duration
	ImageWaitTimeout     time.Duration
	DefaultPostLoadDelay time.Duration
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 60 * time.Second
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 30 * time.Second
	}
	if c.ProbeBudget <= 0 {
		c.ProbeBudget = 20 * time.Second
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 500 * time.Millisecond
	}
	if c.ProbeSettle <= 0 {
		c.ProbeSettle = time.Second
	}
	if c.NetworkIdleTimeout <= 0 {
		c.NetworkIdleTimeout = 10 * time.Second
	}
	if c.ScrollTimeout <= 0 {
		// The in-page scroll loop budgets itself to 40s; the ctx cap is a
		// backstop slightly above it.
		c.ScrollTimeout = 45 * time.Second
	}
	if c.ImageWaitTimeout <= 0 {
		c.ImageWaitTimeout = 10 * time.Second
	}
	return c
}

// Pipeline is the staged sequence of waits that both capture and
// extraction run against a leased session before touching the page.
type Pipeline struct {
	cfg    PipelineConfig
	logger *zap.Logger
}

// NewPipeline builds a Pipeline, filling unset budgets with defaults.
func NewPipeline(cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg.withDefaults(), logger: logger}
}

// stage is one named advisory step. A non-nil error from run degrades to a
// log line and the pipeline continues; only an expired outer ctx aborts.
type stage struct {
	name string
	run  func(ctx context.Context) error
}

// Run navigates the session to url and walks the readiness stages. Only
// navigation can fail the request; everything after it is best-effort, so
// capture and extraction always see the best available page state. The
// returned Readiness reflects the final content probe.
func (p *Pipeline) Run(ctx context.Context, sess browser.Session, url string, requestedDelay time.Duration) (Readiness, error) {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()
	if err := sess.Navigate(navCtx, url); err != nil {
		return Readiness{}, &NavigationError{URL: url, Err: err}
	}
	p.logger.Debug("navigation committed", zap.String("url", url))

	var ready Readiness
	stages := []stage{
		{"load_event", func(ctx context.Context) error {
			return p.bounded(ctx, p.cfg.LoadTimeout, sess.WaitLoad)
		}},
		{"content_probe", func(ctx context.Context) error {
			ready = p.probeContent(ctx, sess)
			p.logger.Info("content probe finished",
				zap.Bool("ready", ready.Ready),
				zap.Int("text_length", ready.TextLength),
				zap.Int("image_count", ready.ImageCount),
				zap.String("source", ready.Source),
			)
			return nil
		}},
		{"network_idle_recheck", func(ctx context.Context) error {
			if ready.Ready {
				return nil
			}
			if err := p.bounded(ctx, p.cfg.NetworkIdleTimeout, sess.WaitNetworkIdle); err != nil {
				p.logger.Debug("network idle before recheck degraded", zap.Error(err))
			}
			snap, err := querySnapshot(ctx, sess)
			if err != nil {
				return err
			}
			if r, ok := judgeSnapshot(snap); ok {
				ready = r
			} else {
				ready = notReady(snap)
			}
			p.logger.Info("content state after network idle",
				zap.Bool("ready", ready.Ready),
				zap.Int("text_length", ready.TextLength),
				zap.Int("image_count", ready.ImageCount),
			)
			return nil
		}},
		{"auto_scroll", func(ctx context.Context) error {
			return p.boundedEval(ctx, p.cfg.ScrollTimeout, sess, autoScrollJS)
		}},
		{"network_idle_settle", func(ctx context.Context) error {
			return p.bounded(ctx, p.cfg.NetworkIdleTimeout, sess.WaitNetworkIdle)
		}},
		{"image_loads", func(ctx context.Context) error {
			return p.boundedEval(ctx, p.cfg.ImageWaitTimeout, sess, waitForImagesJS)
		}},
		{"post_load_delay", func(ctx context.Context) error {
			return p.settle(ctx, requestedDelay)
		}},
	}

	for _, st := range stages {
		if err := st.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ready, ctx.Err()
			}
			p.logger.Info("pipeline stage degraded, continuing",
				zap.String("stage", st.name), zap.Error(err))
		}
	}
	return ready, nil
}

func (p *Pipeline) bounded(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	subCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(subCtx)
}

func (p *Pipeline) boundedEval(ctx context.Context, d time.Duration, sess browser.Session, script string) error {
	subCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return sess.Evaluate(subCtx, script, nil)
}

// settle sleeps for max(requested, configured default), clamped to the
// hard ceiling.
func (p *Pipeline) settle(ctx context.Context, requested time.Duration) error {
	delay := p.effectiveDelay(requested)
	if delay <= 0 {
		return nil
	}
	p.logger.Debug("post-load settle", zap.Duration("delay", delay))
	return sleep(ctx, delay)
}

// effectiveDelay exposes the settle computation for callers that only need
// the number.
func (p *Pipeline) effectiveDelay(requested time.Duration) time.Duration {
	delay := requested
	if p.cfg.DefaultPostLoadDelay > delay {
		delay = p.cfg.DefaultPostLoadDelay
	}
	if delay > maxPostLoadDelay {
		delay = maxPostLoadDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
