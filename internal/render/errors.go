package render

import (
	"errors"
	"fmt"
	"time"
)

// NavigationError reports that the initial navigation failed: target
// unreachable, connection refused, or commit not reached within the
// navigation timeout. It is a request-level failure, never retried.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// TimeoutError reports that an operation exceeded its overall budget. It is
// marked retryable: the target may simply have been slow.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Budget)
}

// CaptureError reports that the final screenshot call failed (including
// its own nested timeout firing before the overall budget). It is distinct
// from TimeoutError and not retryable.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screenshot capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Kind buckets request failures for the API boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
)

// Classify maps an error to its boundary kind and retryable flag.
func Classify(err error) (Kind, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return KindTimeout, true
	}
	return KindInternal, false
}
