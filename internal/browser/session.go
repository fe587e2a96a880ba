// Package browser owns the shared headless Chrome process and hands out
// isolated, single-use browsing sessions under a concurrency cap.
package browser

import "context"

// CaptureOptions control the final screenshot call on a session.
type CaptureOptions struct {
	// FullPage captures the whole scroll height instead of the viewport.
	FullPage bool
	// Format is one of png, jpeg, webp.
	Format string
	// Quality (1-100) applies to jpeg and webp only.
	Quality int
}

// Session is one isolated browsing session inside the shared browser: a
// fresh tab with its own storage, created per request and destroyed on
// release. Every method honors ctx cancellation; an expired ctx aborts the
// in-flight call without tearing down the tab.
type Session interface {
	// Navigate starts navigation to url and returns as soon as the
	// navigation commits, before any resources load.
	Navigate(ctx context.Context, url string) error
	// WaitLoad blocks until the page load event has fired.
	WaitLoad(ctx context.Context) error
	// WaitNetworkIdle blocks until no requests have been in flight for a
	// short window.
	WaitNetworkIdle(ctx context.Context) error
	// Evaluate runs script in the page, awaiting promises, and unmarshals
	// the result into out. A nil out discards the result.
	Evaluate(ctx context.Context, script string, out any) error
	// Screenshot captures the page as encoded image bytes.
	Screenshot(ctx context.Context, opts CaptureOptions) ([]byte, error)
	// Close destroys the tab. Idempotent.
	Close() error
}

// handle is one live browser process owned by the pool.
type handle interface {
	NewSession() (Session, error)
	Alive() bool
	Close() error
}

// driver launches browser processes. The pool talks to Chrome exclusively
// through this seam so its recovery logic can be tested with a fake.
type driver interface {
	Launch(ctx context.Context) (handle, error)
}
