package port

import (
	"context"
	"time"
)

// RateLimitStore tracks request attempts per bucket for sliding-window
// throttling. Buckets are opaque strings; the store only orders attempts
// by time.
type RateLimitStore interface {
	// RecordAttempt appends one attempt at the given instant.
	RecordAttempt(ctx context.Context, bucket string, at time.Time) error
	// CountAttempts reports attempts within the window ending at reference.
	CountAttempts(ctx context.Context, bucket string, window time.Duration, reference time.Time) (int, error)
	// TrimWindow drops attempts that fell out of the window.
	TrimWindow(ctx context.Context, bucket string, window time.Duration, reference time.Time) error
	// OldestAttempt returns the earliest attempt still inside the window.
	OldestAttempt(ctx context.Context, bucket string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
