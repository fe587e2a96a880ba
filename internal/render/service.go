package render

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/browser"
)

// Extraction option bounds.
const (
	defaultMaxImages = 100
	minMaxImages     = 1
	maxMaxImages     = 500
)

// ServiceConfig holds the outer budgets and extraction defaults.
type ServiceConfig struct {
	// OperationTimeout bounds pipeline plus capture end to end.
	OperationTimeout time.Duration
	// CaptureTimeout bounds just the final screenshot encode.
	CaptureTimeout time.Duration
	// ExtractionTimeout bounds pipeline plus query plus transform.
	ExtractionTimeout time.Duration

	DefaultMinWidth           int
	DefaultMinHeight          int
	DefaultMaxImages          int
	DefaultIncludeBackgrounds bool
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 300 * time.Second
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 60 * time.Second
	}
	if c.ExtractionTimeout <= 0 {
		c.ExtractionTimeout = 60 * time.Second
	}
	if c.DefaultMinWidth <= 0 {
		c.DefaultMinWidth = 100
	}
	if c.DefaultMinHeight <= 0 {
		c.DefaultMinHeight = 100
	}
	if c.DefaultMaxImages <= 0 {
		c.DefaultMaxImages = defaultMaxImages
	}
	return c
}

// pool is the slice of browser.Pool the service needs; tests swap in a
// fake to exercise the timeout and release paths without Chrome.
type pool interface {
	Acquire(ctx context.Context) (*browser.Lease, error)
	Release(l *browser.Lease)
}

// Service runs screenshot capture and image extraction on top of the
// browser pool and the readiness pipeline.
type Service struct {
	pool     pool
	pipeline *Pipeline
	cfg      ServiceConfig
	logger   *zap.Logger
}

// NewService builds a Service.
func NewService(p *browser.Pool, pipeline *Pipeline, cfg ServiceConfig, logger *zap.Logger) *Service {
	return newService(p, pipeline, cfg, logger)
}

func newService(p pool, pipeline *Pipeline, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pool: p, pipeline: pipeline, cfg: cfg.withDefaults(), logger: logger}
}

// ScreenshotRequest describes one capture.
type ScreenshotRequest struct {
	URL      string
	FullPage bool
	Format   string // png, jpeg, webp
	Quality  int    // 1-100, jpeg/webp only
	Delay    time.Duration
}

// Screenshot renders the page and captures it, returning the encoded
// bytes. The leased session is always released, whichever way the request
// unwinds.
func (s *Service) Screenshot(ctx context.Context, req ScreenshotRequest) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	lease, err := s.pool.Acquire(opCtx)
	if err != nil {
		return nil, s.wrapAcquire(opCtx, err, "screenshot")
	}
	defer s.pool.Release(lease)

	ready, err := s.pipeline.Run(opCtx, lease.Session, req.URL, req.Delay)
	if err != nil {
		return nil, s.wrapPipeline(opCtx, err, "screenshot")
	}
	if !ready.Ready {
		s.logger.Warn("capturing with content not judged ready",
			zap.String("url", req.URL), zap.String("source", ready.Source))
	}

	capCtx, capCancel := context.WithTimeout(opCtx, s.cfg.CaptureTimeout)
	defer capCancel()
	buf, err := lease.Session.Screenshot(capCtx, browser.CaptureOptions{
		FullPage: req.FullPage,
		Format:   req.Format,
		Quality:  req.Quality,
	})
	if err != nil {
		if opCtx.Err() != nil {
			return nil, &TimeoutError{Op: "screenshot", Budget: s.cfg.OperationTimeout}
		}
		// Includes the capture-specific timeout: a hard failure, not an
		// operation timeout.
		return nil, &CaptureError{Err: err}
	}
	s.logger.Info("screenshot captured",
		zap.String("url", req.URL), zap.Int("bytes", len(buf)), zap.String("format", req.Format))
	return buf, nil
}

// ExtractRequest describes one image extraction.
type ExtractRequest struct {
	URL                string
	MinWidth           *int
	MinHeight          *int
	MaxImages          int
	IncludeBackgrounds bool
}

// ExtractResult is the extraction outcome: classified images plus counts.
type ExtractResult struct {
	Images          []ExtractedImage
	TotalImages     int
	FilteredOut     int
	LazyLoadedCount int
	Elapsed         time.Duration
}

// ExtractImages renders the page, runs the in-page extraction query, and
// applies the filter/limit/classify transform.
func (s *Service) ExtractImages(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	start := time.Now()

	minWidth := s.cfg.DefaultMinWidth
	if req.MinWidth != nil {
		minWidth = *req.MinWidth
	}
	minHeight := s.cfg.DefaultMinHeight
	if req.MinHeight != nil {
		minHeight = *req.MinHeight
	}
	maxImages := req.MaxImages
	if maxImages == 0 {
		maxImages = s.cfg.DefaultMaxImages
	}
	if maxImages < minMaxImages {
		maxImages = minMaxImages
	}
	if maxImages > maxMaxImages {
		maxImages = maxMaxImages
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractionTimeout)
	defer cancel()

	lease, err := s.pool.Acquire(opCtx)
	if err != nil {
		return nil, s.wrapAcquire(opCtx, err, "image extraction")
	}
	defer s.pool.Release(lease)

	if _, err := s.pipeline.Run(opCtx, lease.Session, req.URL, 0); err != nil {
		return nil, s.wrapPipeline(opCtx, err, "image extraction")
	}

	var payload extractionPayload
	if err := lease.Session.Evaluate(opCtx, extractImagesScript(req.IncludeBackgrounds), &payload); err != nil {
		if opCtx.Err() != nil {
			return nil, &TimeoutError{Op: "image extraction", Budget: s.cfg.ExtractionTimeout}
		}
		return nil, err
	}
	s.logger.Info("extracted raw images",
		zap.String("url", req.URL), zap.Int("count", len(payload.AllImages)))

	filtered := filterImages(payload.AllImages, minWidth, minHeight)
	limited := limitImages(filtered, maxImages)
	classified := classifyImages(limited, payload.PageContext)

	return &ExtractResult{
		Images:          classified,
		TotalImages:     len(classified),
		FilteredOut:     len(payload.AllImages) - len(filtered),
		LazyLoadedCount: payload.LazyLoadedCount,
		Elapsed:         time.Since(start),
	}, nil
}

func (s *Service) wrapAcquire(opCtx context.Context, err error, op string) error {
	if opCtx.Err() != nil {
		return &TimeoutError{Op: op, Budget: s.budgetFor(op)}
	}
	return err
}

func (s *Service) wrapPipeline(opCtx context.Context, err error, op string) error {
	var navErr *NavigationError
	if errors.As(err, &navErr) && opCtx.Err() == nil {
		return err
	}
	if opCtx.Err() != nil {
		return &TimeoutError{Op: op, Budget: s.budgetFor(op)}
	}
	return err
}

func (s *Service) budgetFor(op string) time.Duration {
	if op == "image extraction" {
		return s.cfg.ExtractionTimeout
	}
	return s.cfg.OperationTimeout
}
