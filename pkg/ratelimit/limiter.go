package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCapacity is returned when a quota capacity is zero or negative.
	ErrInvalidCapacity = errors.New("ratelimit: quota capacity must be positive")

	// ErrInvalidEpoch is returned when a quota window length is zero or negative.
	ErrInvalidEpoch = errors.New("ratelimit: quota epoch must be positive")
)

// Limiter is the admission gate shared by every caller of a rate-limited
// resource. Call and Wait block until the quota allows another call; the ctx
// bounds only that blocking, a context.Background() waits indefinitely.
type Limiter interface {
	// Call blocks until admission is granted, runs op, records the outcome,
	// and returns op's error unchanged. A nil op consumes a token and counts
	// as a successful call.
	Call(ctx context.Context, op func() error) error

	// Wait blocks until a token is available without consuming it.
	Wait(ctx context.Context) error

	// ResetIn discards any scheduled window reset, drains all available
	// tokens, and resets the window after d instead. Used to resynchronize
	// to a server-reported window boundary.
	ResetIn(d time.Duration)

	// Stats returns a consistent snapshot of call counts.
	Stats() Stats
}

// Stats is a snapshot of a limiter's accounting.
type Stats struct {
	// Successful counts completed calls whose operation returned no error.
	Successful uint64
	// Total counts all completed calls.
	Total uint64
}
