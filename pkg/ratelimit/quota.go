package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quota is one fixed-window limit: Capacity calls per Epoch.
type Quota struct {
	Capacity int64
	Epoch    time.Duration
}

// Validate checks that the quota is enforceable.
func (q Quota) Validate() error {
	if q.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if q.Epoch <= 0 {
		return ErrInvalidEpoch
	}
	return nil
}

// String renders the quota in the same form ParseQuota accepts, e.g. "100/2m0s".
func (q Quota) String() string {
	return fmt.Sprintf("%d/%s", q.Capacity, q.Epoch)
}

// ParseQuota parses "capacity/window", e.g. "20/1s" or "100/2m".
func ParseQuota(s string) (Quota, error) {
	capStr, epochStr, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return Quota{}, fmt.Errorf("ratelimit: quota %q must be capacity/window (e.g. 100/2m)", s)
	}
	capacity, err := strconv.ParseInt(strings.TrimSpace(capStr), 10, 64)
	if err != nil {
		return Quota{}, fmt.Errorf("ratelimit: quota %q has invalid capacity: %w", s, err)
	}
	epoch, err := time.ParseDuration(strings.TrimSpace(epochStr))
	if err != nil {
		return Quota{}, fmt.Errorf("ratelimit: quota %q has invalid window: %w", s, err)
	}
	q := Quota{Capacity: capacity, Epoch: epoch}
	if err := q.Validate(); err != nil {
		return Quota{}, fmt.Errorf("ratelimit: quota %q: %w", s, err)
	}
	return q, nil
}

// ParseQuotas parses a comma-separated quota list, e.g. "20/1s,100/2m".
func ParseQuotas(s string) ([]Quota, error) {
	parts := strings.Split(s, ",")
	out := make([]Quota, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		q, err := ParseQuota(p)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
