// Package ratelimit paces provider calls so an experiment stays under API
// rate limits. Pacing is process-wide: workers share one pacer, so the gap
// between request starts holds no matter how many workers run.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces out request starts.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoopPacer never delays.
var NoopPacer Pacer = noopPacer{}

type noopPacer struct{}

func (noopPacer) Wait(ctx context.Context) error { return ctx.Err() }

// IntervalPacer enforces a minimum gap between successive request starts.
type IntervalPacer struct {
	mu   sync.Mutex
	gap  time.Duration
	next time.Time
	now  func() time.Time
}

// NewInterval builds a pacer with the given gap between starts.
func NewInterval(gap time.Duration) *IntervalPacer {
	return &IntervalPacer{gap: gap, now: time.Now}
}

// ForDelay returns an interval pacer, or the noop pacer when no delay is
// configured.
func ForDelay(gap time.Duration) Pacer {
	if gap <= 0 {
		return NoopPacer
	}
	return NewInterval(gap)
}

// Wait blocks until this caller's slot arrives or the context ends. Slots
// are handed out in call order, each one gap after the previous.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	now := p.now()
	at := p.next
	if at.Before(now) {
		at = now
	}
	p.next = at.Add(p.gap)
	p.mu.Unlock()
	return Sleep(ctx, at.Sub(now))
}

// Sleep waits for the duration unless the context ends first. The runner
// uses it directly for the cooldown before retries.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
