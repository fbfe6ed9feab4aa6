package ratelimit

import (
	"context"
	"time"
)

var _ Limiter = (*MultiLimiter)(nil)

// MultiLimiter enforces several window quotas at once. A call is admitted
// only when every member window has a free token; members are always visited
// in construction order. Each member runs its own epoch cycle, so members can
// be in different phases of their windows at any time.
type MultiLimiter struct {
	members []*WindowLimiter
}

// NewMulti creates a limiter over the given quotas, one member window per
// quota, in order. With no quotas the limiter admits everything and reports
// zero stats.
func NewMulti(quotas ...Quota) (*MultiLimiter, error) {
	members := make([]*WindowLimiter, 0, len(quotas))
	for _, q := range quotas {
		w, err := NewWindow(q)
		if err != nil {
			return nil, err
		}
		members = append(members, w)
	}
	return &MultiLimiter{members: members}, nil
}

// Combine builds a MultiLimiter from already-constructed windows, preserving
// their order. Use this when windows need individual options such as names
// or metric hooks.
func Combine(members ...*WindowLimiter) *MultiLimiter {
	return &MultiLimiter{members: members}
}

// Call blocks until every member reports a free token, runs op exactly once,
// then consumes one token from each member and records the outcome on all of
// them. The counting round marks every member successful and corrects the
// count afterwards when op failed; the net effect of a failure is one extra
// total call and no extra successful call per member.
func (m *MultiLimiter) Call(ctx context.Context, op func() error) error {
	if err := m.Wait(ctx); err != nil {
		return err
	}

	success := false
	defer m.settle(&success)

	if op != nil {
		if err := op(); err != nil {
			return err
		}
	}
	success = true
	return nil
}

// Wait blocks until every member has a free token, in member order, without
// consuming any. Wait-then-admit is not atomic across members: another
// caller can take a member's token between checks, in which case the
// counting round in Call blocks on that member again.
func (m *MultiLimiter) Wait(ctx context.Context) error {
	for _, w := range m.members {
		if err := w.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ResetIn forwards the reset to every member.
func (m *MultiLimiter) ResetIn(d time.Duration) {
	for _, w := range m.members {
		w.ResetIn(d)
	}
}

// Stats returns the first member's counters. With no members it returns the
// zero Stats, the "rate limiting disabled" sentinel.
func (m *MultiLimiter) Stats() Stats {
	if len(m.members) == 0 {
		return Stats{}
	}
	return m.members[0].Stats()
}

// settle is the exit bookkeeping for Call: one counting-gate call per member,
// with the optimistic success undone when the shared operation failed. It
// runs with a background context so accounting completes for every member
// even when the caller's ctx has been cancelled, mirroring the unconditional
// bookkeeping of the single-window path.
func (m *MultiLimiter) settle(success *bool) {
	for _, w := range m.members {
		_ = w.Call(context.Background(), nil)
		if !*success {
			w.decrementSuccess()
		}
	}
}
