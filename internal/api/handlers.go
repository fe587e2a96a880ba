package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/events"
	"github.com/igentity/pagecapture/internal/history"
	"github.com/igentity/pagecapture/internal/render"
	"github.com/igentity/pagecapture/internal/security"
	"github.com/igentity/pagecapture/internal/telemetry"
	"github.com/igentity/pagecapture/internal/upload"
)

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req screenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	req.applyDefaults()
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := security.ValidateURL(req.URL); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: "Invalid URL", Message: err.Error()})
		return
	}

	telemetry.IncActiveRenders()
	defer telemetry.DecActiveRenders()

	buf, err := s.capture.Screenshot(r.Context(), render.ScreenshotRequest{
		URL:      req.URL,
		FullPage: *req.FullPage,
		Format:   req.Format,
		Quality:  *req.Quality,
		Delay:    time.Duration(*req.DelayMs) * time.Millisecond,
	})
	if err != nil {
		s.failCapture(w, r, "screenshot", req.URL, req.Format, start, err)
		return
	}
	telemetry.ObserveScreenshotBytes(req.Format, len(buf))

	obj, err := s.store(r.Context(), buf, req.Format)
	if err != nil {
		s.logger.Error("screenshot upload failed",
			zap.String("url", req.URL), zap.Error(err))
		s.failCapture(w, r, "screenshot", req.URL, req.Format, start, err)
		return
	}

	capturedAt := time.Now().UTC()
	processing := time.Since(start)
	telemetry.ObserveCapture("screenshot", req.URL, "ok", processing)
	s.recordCapture(r.Context(), history.Record{
		ID:            RequestID(r.Context()),
		URL:           req.URL,
		Operation:     "screenshot",
		Status:        "ok",
		ScreenshotURL: obj.URL,
		FileSize:      obj.FileSize,
		Format:        req.Format,
		DurationMs:    processing.Milliseconds(),
		CapturedAt:    capturedAt,
	})
	s.publishCaptured(r.Context(), events.ScreenshotCaptured{
		RequestID:     RequestID(r.Context()),
		URL:           req.URL,
		ScreenshotURL: obj.URL,
		FileName:      obj.FileName,
		FileSize:      obj.FileSize,
		Format:        req.Format,
		CapturedAt:    capturedAt,
		DurationMs:    processing.Milliseconds(),
	})

	writeJSON(w, http.StatusOK, screenshotResponse{
		Success:       true,
		ScreenshotURL: obj.URL,
		Metadata: screenshotMetadata{
			URL:            req.URL,
			FileName:       obj.FileName,
			Format:         req.Format,
			FullPage:       *req.FullPage,
			CapturedAt:     capturedAt.Format(time.RFC3339),
			FileSize:       obj.FileSize,
			ContentType:    obj.ContentType,
			ProcessingTime: processing.Milliseconds(),
		},
	})
}

func (s *Server) handleExtractImages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req extractImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: "invalid JSON", Success: boolPtr(false)})
		return
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: err.Error(), Success: boolPtr(false)})
		return
	}
	if err := security.ValidateURL(req.URL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid URL", Message: err.Error(), Success: boolPtr(false),
		})
		return
	}

	extractReq := render.ExtractRequest{
		URL:                req.URL,
		IncludeBackgrounds: s.cfg.Image.IncludeBackgrounds,
	}
	if req.Options != nil {
		extractReq.MinWidth = req.Options.MinWidth
		extractReq.MinHeight = req.Options.MinHeight
		if req.Options.MaxImages != nil {
			extractReq.MaxImages = *req.Options.MaxImages
		}
	}

	telemetry.IncActiveRenders()
	defer telemetry.DecActiveRenders()

	res, err := s.capture.ExtractImages(r.Context(), extractReq)
	if err != nil {
		s.failExtraction(w, r, req.URL, start, err)
		return
	}

	processing := time.Since(start)
	telemetry.ObserveCapture("extract_images", req.URL, "ok", processing)
	s.recordCapture(r.Context(), history.Record{
		ID:         RequestID(r.Context()),
		URL:        req.URL,
		Operation:  "extract_images",
		Status:     "ok",
		ImageCount: res.TotalImages,
		DurationMs: processing.Milliseconds(),
		CapturedAt: time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, extractImagesResponse{
		Success:     true,
		URL:         req.URL,
		TotalImages: res.TotalImages,
		Images:      res.Images,
		Metadata: extractionMetadata{
			ProcessingTime:  processing.Milliseconds(),
			TotalImages:     res.TotalImages,
			FilteredOut:     res.FilteredOut,
			LazyLoadedCount: res.LazyLoadedCount,
			ElapsedMs:       res.Elapsed.Milliseconds(),
		},
	})
}

// store uploads screenshot bytes under the upload budget.
func (s *Server) store(ctx context.Context, buf []byte, format string) (upload.Object, error) {
	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout())
	defer cancel()
	return s.uploads.Save(uploadCtx, upload.ObjectName(format), buf, upload.ContentTypeFor(format))
}

func (s *Server) failCapture(w http.ResponseWriter, r *http.Request, op, url, format string, start time.Time, err error) {
	kind, retryable := render.Classify(err)
	status := "error"
	if kind == render.KindTimeout {
		status = "timeout"
	}
	telemetry.ObserveCapture(op, url, status, time.Since(start))
	s.recordCapture(r.Context(), history.Record{
		ID:         RequestID(r.Context()),
		URL:        url,
		Operation:  op,
		Status:     status,
		Format:     format,
		DurationMs: time.Since(start).Milliseconds(),
		CapturedAt: time.Now().UTC(),
	})

	if kind == render.KindTimeout {
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{
			Error:     "Screenshot capture timed out",
			Timeout:   boolPtr(true),
			Retryable: boolPtr(true),
		})
		return
	}
	s.logger.Error("screenshot failed", zap.String("url", url), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     err.Error(),
		Retryable: boolPtr(retryable),
	})
}

func (s *Server) failExtraction(w http.ResponseWriter, r *http.Request, url string, start time.Time, err error) {
	kind, retryable := render.Classify(err)
	status := "error"
	if kind == render.KindTimeout {
		status = "timeout"
	}
	telemetry.ObserveCapture("extract_images", url, status, time.Since(start))
	s.recordCapture(r.Context(), history.Record{
		ID:         RequestID(r.Context()),
		URL:        url,
		Operation:  "extract_images",
		Status:     status,
		DurationMs: time.Since(start).Milliseconds(),
		CapturedAt: time.Now().UTC(),
	})

	if kind == render.KindTimeout {
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{
			Error:     "Image extraction timed out",
			Timeout:   boolPtr(true),
			Retryable: boolPtr(true),
			Success:   boolPtr(false),
		})
		return
	}
	s.logger.Error("image extraction failed", zap.String("url", url), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     err.Error(),
		Retryable: boolPtr(retryable),
		Success:   boolPtr(false),
	})
}

// recordCapture writes a history row best-effort. The ID falls back to a
// fresh UUID when middleware did not assign one (tests hitting handlers
// directly).
func (s *Server) recordCapture(ctx context.Context, rec history.Record) {
	if s.history == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	// Detached from the request context so a client disconnect does not
	// drop the row.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.StoreCapture(storeCtx, rec); err != nil {
		s.logger.Warn("storing capture history failed",
			zap.String("url", rec.URL), zap.Error(err))
	}
}

// publishCaptured emits the completion event best-effort.
func (s *Server) publishCaptured(ctx context.Context, event events.ScreenshotCaptured) {
	if s.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.events.Publish(pubCtx, event); err != nil {
		s.logger.Warn("publishing capture event failed",
			zap.String("url", event.URL), zap.Error(err))
	}
}
