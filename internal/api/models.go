package api

import (
	"fmt"

	"github.com/igentity/pagecapture/internal/render"
)

// screenshotRequest is the POST /api/screenshot body.
type screenshotRequest struct {
	URL      string `json:"url"`
	FullPage *bool  `json:"fullPage"`
	Format   string `json:"format"`
	Quality  *int   `json:"quality"`
	DelayMs  *int   `json:"delay"`
}

func (r *screenshotRequest) applyDefaults() {
	if r.FullPage == nil {
		fullPage := true
		r.FullPage = &fullPage
	}
	if r.Format == "" {
		r.Format = "png"
	}
	if r.Quality == nil {
		quality := 90
		r.Quality = &quality
	}
	if r.DelayMs == nil {
		delay := 0
		r.DelayMs = &delay
	}
}

func (r *screenshotRequest) validate() error {
	switch r.Format {
	case "png", "jpeg", "webp":
	default:
		return fmt.Errorf("invalid format, must be png, jpeg, or webp")
	}
	if *r.Quality < 1 || *r.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100")
	}
	if *r.DelayMs < 0 || *r.DelayMs > 30000 {
		return fmt.Errorf("delay must be between 0 and 30000 milliseconds")
	}
	return nil
}

// extractImagesRequest is the POST /api/extract-images body.
type extractImagesRequest struct {
	URL     string          `json:"url"`
	Options *extractOptions `json:"options"`
}

type extractOptions struct {
	MinWidth  *int `json:"minWidth"`
	MinHeight *int `json:"minHeight"`
	MaxImages *int `json:"maxImages"`
}

func (r *extractImagesRequest) validate() error {
	if r.Options == nil {
		return nil
	}
	if r.Options.MinWidth != nil && *r.Options.MinWidth < 0 {
		return fmt.Errorf("minWidth must be >= 0")
	}
	if r.Options.MinHeight != nil && *r.Options.MinHeight < 0 {
		return fmt.Errorf("minHeight must be >= 0")
	}
	if r.Options.MaxImages != nil && (*r.Options.MaxImages < 1 || *r.Options.MaxImages > 500) {
		return fmt.Errorf("maxImages must be between 1 and 500")
	}
	return nil
}

// screenshotMetadata describes a stored screenshot in the response.
type screenshotMetadata struct {
	URL            string `json:"url"`
	FileName       string `json:"fileName"`
	Format         string `json:"format"`
	FullPage       bool   `json:"fullPage"`
	CapturedAt     string `json:"capturedAt"`
	FileSize       int    `json:"fileSize"`
	ContentType    string `json:"contentType"`
	ProcessingTime int64  `json:"processingTime"`
}

type screenshotResponse struct {
	Success       bool               `json:"success"`
	ScreenshotURL string             `json:"screenshotUrl"`
	Metadata      screenshotMetadata `json:"metadata"`
}

type extractionMetadata struct {
	ProcessingTime  int64 `json:"processingTime"`
	TotalImages     int   `json:"totalImages"`
	FilteredOut     int   `json:"filteredOut"`
	LazyLoadedCount int   `json:"lazyLoadedCount"`
	ElapsedMs       int64 `json:"elapsedMs"`
}

type extractImagesResponse struct {
	Success     bool                    `json:"success"`
	URL         string                  `json:"url"`
	TotalImages int                     `json:"totalImages"`
	Images      []render.ExtractedImage `json:"images"`
	Metadata    extractionMetadata      `json:"metadata"`
}

// errorResponse is the shared failure shape. Timeout and Retryable are
// omitted unless set, matching the wire format consumers already parse.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timeout   *bool  `json:"timeout,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
	Success   *bool  `json:"success,omitempty"`
}
