package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceCfg() ServiceConfig {
	return ServiceConfig{
		OperationTimeout:  time.Second,
		CaptureTimeout:    500 * time.Millisecond,
		ExtractionTimeout: time.Second,
	}
}

func TestScreenshotReturnsBytesAndReleasesLease(t *testing.T) {
	sess := &fakeSession{
		snapshots: []contentSnapshot{spaReadySnapshot()},
		shotData:  []byte("\x89PNG fake"),
	}
	pool := &fakeLeasePool{sess: sess}
	svc := newService(pool, testPipeline(0), serviceCfg(), nil)

	buf, err := svc.Screenshot(context.Background(), ScreenshotRequest{
		URL: "https://example.com", Format: "png",
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG fake"), buf)
	assert.Equal(t, 1, pool.releases())
}

func TestScreenshotTimesOutWaitingForSlot(t *testing.T) {
	pool := &fakeLeasePool{blocks: true}
	cfg := serviceCfg()
	cfg.OperationTimeout = 20 * time.Millisecond
	svc := newService(pool, testPipeline(0), cfg, nil)

	_, err := svc.Screenshot(context.Background(), ScreenshotRequest{URL: "https://example.com"})

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "screenshot", te.Op)

	kind, retryable := Classify(err)
	assert.Equal(t, KindTimeout, kind)
	assert.True(t, retryable)
	// Never acquired, so nothing to release.
	assert.Equal(t, 0, pool.releases())
}

func TestScreenshotNavigationFailureReleasesLease(t *testing.T) {
	sess := &fakeSession{navErr: errors.New("net::ERR_CONNECTION_REFUSED")}
	pool := &fakeLeasePool{sess: sess}
	svc := newService(pool, testPipeline(0), serviceCfg(), nil)

	_, err := svc.Screenshot(context.Background(), ScreenshotRequest{URL: "https://example.com"})

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, 1, pool.releases())
}

func TestScreenshotCaptureFailureIsNotATimeout(t *testing.T) {
	sess := &fakeSession{
		snapshots: []contentSnapshot{spaReadySnapshot()},
		shotErr:   errors.New("could not encode frame"),
	}
	pool := &fakeLeasePool{sess: sess}
	svc := newService(pool, testPipeline(0), serviceCfg(), nil)

	_, err := svc.Screenshot(context.Background(), ScreenshotRequest{URL: "https://example.com"})

	var capErr *CaptureError
	require.ErrorAs(t, err, &capErr)
	kind, retryable := Classify(err)
	assert.Equal(t, KindInternal, kind)
	assert.False(t, retryable)
	assert.Equal(t, 1, pool.releases())
}

func TestScreenshotStalledCaptureIsACaptureError(t *testing.T) {
	sess := &fakeSession{
		snapshots:  []contentSnapshot{spaReadySnapshot()},
		shotBlocks: true,
	}
	pool := &fakeLeasePool{sess: sess}
	cfg := serviceCfg()
	cfg.CaptureTimeout = 20 * time.Millisecond
	svc := newService(pool, testPipeline(0), cfg, nil)

	_, err := svc.Screenshot(context.Background(), ScreenshotRequest{URL: "https://example.com"})

	// The capture budget fired while the operation budget was still open:
	// a hard capture failure, not a retryable timeout.
	var capErr *CaptureError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, pool.releases())
}

func TestScreenshotOperationBudgetExpiryIsATimeout(t *testing.T) {
	sess := &fakeSession{
		snapshots:  []contentSnapshot{spaReadySnapshot()},
		shotBlocks: true,
	}
	pool := &fakeLeasePool{sess: sess}
	cfg := serviceCfg()
	cfg.OperationTimeout = 150 * time.Millisecond
	cfg.CaptureTimeout = 10 * time.Second
	svc := newService(pool, testPipeline(0), cfg, nil)

	_, err := svc.Screenshot(context.Background(), ScreenshotRequest{URL: "https://example.com"})

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, pool.releases())
}

func TestExtractImagesFiltersLimitsClassifies(t *testing.T) {
	payload := &extractionPayload{
		AllImages: []RawImage{
			{Src: "https://shop.example/hero.jpg", Width: 1400, Height: 600,
				Position: Position{Y: 50}},
			{Src: "https://shop.example/thumb.jpg", Width: 200, Height: 150,
				Position: Position{Y: 800}, IsLazyLoaded: true},
			{Src: "https://shop.example/pixel.gif", Width: 1, Height: 1},
			{Src: "data:image/svg+xml;base64,PHN2Zz4=", Width: 400, Height: 400},
		},
		PageContext:     PageContext{ViewportWidth: 1920, ViewportHeight: 1080},
		LazyLoadedCount: 1,
	}
	sess := &fakeSession{
		snapshots: []contentSnapshot{spaReadySnapshot()},
		payload:   payload,
	}
	pool := &fakeLeasePool{sess: sess}
	svc := newService(pool, testPipeline(0), serviceCfg(), nil)

	res, err := svc.ExtractImages(context.Background(), ExtractRequest{URL: "https://shop.example"})

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalImages)
	assert.Equal(t, 2, res.FilteredOut)
	assert.Equal(t, 1, res.LazyLoadedCount)
	assert.Equal(t, ClassHero, res.Images[0].Classification)
	assert.Equal(t, ClassThumbnail, res.Images[1].Classification)
	assert.Equal(t, 1, pool.releases())
}

func TestExtractImagesHonorsOverrides(t *testing.T) {
	payload := &extractionPayload{
		AllImages: []RawImage{
			{Src: "https://example.com/a.jpg", Width: 60, Height: 60, Position: Position{Y: 900}},
			{Src: "https://example.com/b.jpg", Width: 70, Height: 70, Position: Position{Y: 900}},
			{Src: "https://example.com/c.jpg", Width: 80, Height: 80, Position: Position{Y: 900}},
		},
		PageContext: PageContext{ViewportWidth: 1920, ViewportHeight: 1080},
	}
	sess := &fakeSession{
		snapshots: []contentSnapshot{spaReadySnapshot()},
		payload:   payload,
	}
	svc := newService(&fakeLeasePool{sess: sess}, testPipeline(0), serviceCfg(), nil)

	minDim := 50
	res, err := svc.ExtractImages(context.Background(), ExtractRequest{
		URL:       "https://example.com",
		MinWidth:  &minDim,
		MinHeight: &minDim,
		MaxImages: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalImages)
	assert.Equal(t, 0, res.FilteredOut)
}

func TestExtractImagesMaxImagesCeiling(t *testing.T) {
	sess := &fakeSession{
		snapshots: []contentSnapshot{spaReadySnapshot()},
		payload:   &extractionPayload{},
	}
	svc := newService(&fakeLeasePool{sess: sess}, testPipeline(0), serviceCfg(), nil)

	res, err := svc.ExtractImages(context.Background(), ExtractRequest{
		URL:       "https://example.com",
		MaxImages: 9000,
	})

	require.NoError(t, err)
	assert.Empty(t, res.Images)
}
