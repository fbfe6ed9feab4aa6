package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Limiter = (*WindowLimiter)(nil)

// WindowLimiter enforces one fixed-window quota: at most Capacity calls are
// admitted per Epoch. Tokens consumed by admitted calls come back only when
// the window resets; the first call of a window arms the reset timer.
type WindowLimiter struct {
	quota Quota
	name  string

	// tokens is the admission pool, one buffered value per available token.
	// Refills are non-blocking sends capped at capacity, so a token a Wait
	// transiently holds across a reset tops the pool off instead of
	// over-releasing. Blocking for a token and mutating the counters below
	// are separate synchronization domains, so a deferred reset never waits
	// on an in-flight caller.
	tokens chan struct{}

	mu         sync.Mutex
	inFlight   int64
	total      uint64
	successful uint64
	resetTimer *time.Timer // nil when no reset is pending
	resetGen   uint64

	onThrottled func()
	onReset     func()
}

// Option configures a WindowLimiter.
type Option func(*WindowLimiter)

// WithName labels the window for metrics and logs. Defaults to the quota
// string, e.g. "100/2m0s".
func WithName(name string) Option {
	return func(l *WindowLimiter) { l.name = name }
}

// WithOnThrottled sets a callback fired when an admission is about to block
// on an empty pool, once per blocked admission. Called outside the counter
// lock; keep it fast.
func WithOnThrottled(fn func()) Option {
	return func(l *WindowLimiter) { l.onThrottled = fn }
}

// WithOnReset sets a callback fired after a window reset has run. Called
// outside the counter lock.
func WithOnReset(fn func()) Option {
	return func(l *WindowLimiter) { l.onReset = fn }
}

// NewWindow creates a limiter for a single quota. The pool starts full.
func NewWindow(q Quota, opts ...Option) (*WindowLimiter, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	l := &WindowLimiter{
		quota:  q,
		name:   q.String(),
		tokens: make(chan struct{}, q.Capacity),
	}
	for i := int64(0); i < q.Capacity; i++ {
		l.tokens <- struct{}{}
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Name returns the window's label.
func (l *WindowLimiter) Name() string { return l.name }

// Quota returns the enforced quota.
func (l *WindowLimiter) Quota() Quota { return l.quota }

// Call blocks until a token is available, runs op, and records the outcome.
// Bookkeeping runs in all cases, including a panicking op; op's error is
// returned unchanged. A nil op consumes a token and counts as successful,
// which is how MultiLimiter uses member windows as pure counting gates.
func (l *WindowLimiter) Call(ctx context.Context, op func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.inFlight++
	l.mu.Unlock()

	success := false
	defer l.finish(&success)

	if op != nil {
		if err := op(); err != nil {
			return err
		}
	}
	success = true
	return nil
}

// Wait blocks until at least one token is available without consuming it.
// The returned token goes back through the capped release, so a reset firing
// during the transient hold cannot push the pool past capacity.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	select {
	case <-l.tokens:
	default:
		select {
		case <-l.tokens:
		case <-ctx.Done():
			return fmt.Errorf("ratelimit: wait for admission: %w", ctx.Err())
		}
	}
	l.release(1)
	return nil
}

// ResetIn cancels any pending reset, drains all available tokens, and
// schedules a fresh reset after d. Overrides the normal epoch schedule to
// resynchronize with an externally observed window boundary.
func (l *WindowLimiter) ResetIn(d time.Duration) {
	l.mu.Lock()
	if l.resetTimer != nil {
		l.resetTimer.Stop()
		l.resetTimer = nil
	}
	l.drain()
	l.scheduleResetLocked(d)
	l.mu.Unlock()
}

// Stats returns a consistent snapshot of the call counters.
func (l *WindowLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Successful: l.successful, Total: l.total}
}

// acquire takes one admission token, blocking when the pool is empty. The
// throttle hook fires before blocking, not on the fast path.
func (l *WindowLimiter) acquire(ctx context.Context) error {
	select {
	case <-l.tokens:
		return nil
	default:
	}
	if l.onThrottled != nil {
		l.onThrottled()
	}
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ratelimit: acquire admission token: %w", ctx.Err())
	}
}

// finish is the exit bookkeeping for Call: arm the epoch reset if none is
// pending, then count the completed call.
func (l *WindowLimiter) finish(success *bool) {
	l.mu.Lock()
	if l.resetTimer == nil {
		l.scheduleResetLocked(l.quota.Epoch)
	}
	l.inFlight--
	l.total++
	if *success {
		l.successful++
	}
	l.mu.Unlock()
}

// decrementSuccess undoes one optimistic success count. Used by MultiLimiter
// after its counting round when the shared operation failed.
func (l *WindowLimiter) decrementSuccess() {
	l.mu.Lock()
	if l.successful > 0 {
		l.successful--
	}
	l.mu.Unlock()
}

// release returns n tokens to the pool, dropping any beyond capacity. The
// drop is what keeps a racing Wait's returned token from over-filling the
// pool after a reset has already reissued it.
func (l *WindowLimiter) release(n int64) {
	for i := int64(0); i < n; i++ {
		select {
		case l.tokens <- struct{}{}:
		default:
			return
		}
	}
}

// drain empties the pool without blocking. Callers must hold mu.
func (l *WindowLimiter) drain() {
	for {
		select {
		case <-l.tokens:
		default:
			return
		}
	}
}

// scheduleResetLocked arms the reset timer. The generation counter makes a
// superseded timer a no-op even if it has already fired and is waiting on mu,
// so at most one scheduled reset can ever take effect.
func (l *WindowLimiter) scheduleResetLocked(d time.Duration) {
	l.resetGen++
	gen := l.resetGen
	l.resetTimer = time.AfterFunc(d, func() { l.reset(gen) })
}

// reset starts a new window: drain whatever is left, then release headroom
// for exactly the calls not currently in flight. Recomputing from inFlight
// rather than assuming an empty pool keeps the pool correct even if tokens
// were partially consumed since the window began.
func (l *WindowLimiter) reset(gen uint64) {
	l.mu.Lock()
	if gen != l.resetGen {
		l.mu.Unlock()
		return
	}
	l.drain()
	if free := l.quota.Capacity - l.inFlight; free > 0 {
		l.release(free)
	}
	l.resetTimer = nil
	l.mu.Unlock()

	if l.onReset != nil {
		l.onReset()
	}
}
