// Package history persists capture records for audit and debugging.
// The store is optional: without a configured database the service runs
// with the no-op implementation.
package history

import (
	"context"
	"time"
)

// Record is one completed (or failed) capture operation.
type Record struct {
	ID            string
	URL           string
	Operation     string // screenshot or extract_images
	Status        string // ok, timeout, error
	ScreenshotURL string
	FileSize      int
	Format        string
	ImageCount    int
	DurationMs    int64
	CapturedAt    time.Time
}

// Store writes capture records somewhere durable.
type Store interface {
	StoreCapture(ctx context.Context, rec Record) error
	Close()
}

// NoopStore discards records. Used when no database is configured.
type NoopStore struct{}

// StoreCapture does nothing.
func (NoopStore) StoreCapture(context.Context, Record) error { return nil }

// Close does nothing.
func (NoopStore) Close() {}
