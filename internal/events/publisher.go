// Package events publishes capture-completion events for downstream
// consumers.
package events

import (
	"context"
	"time"
)

// ScreenshotCaptured is emitted after a screenshot has been captured and
// stored.
type ScreenshotCaptured struct {
	RequestID     string    `json:"requestId"`
	URL           string    `json:"url"`
	ScreenshotURL string    `json:"screenshotUrl"`
	FileName      string    `json:"fileName"`
	FileSize      int       `json:"fileSize"`
	Format        string    `json:"format"`
	CapturedAt    time.Time `json:"capturedAt"`
	DurationMs    int64     `json:"durationMs"`
}

// Publisher delivers events to a broker. Delivery is best-effort from the
// caller's point of view; a failed publish never fails the request.
type Publisher interface {
	// Publish sends the payload and returns the broker-assigned message ID.
	Publish(ctx context.Context, payload any) (string, error)
}
