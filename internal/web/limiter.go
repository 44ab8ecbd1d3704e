package web

// limiter.go caps how many ingestions the server runs at once.
//
// Each upload takes a slot before its sources are ingested. When every slot is
// taken, the request waits up to maxWait and then fails with errServerBusy.
// Shutdown waits for the active count to reach zero.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var errServerBusy = errors.New("too many concurrent uploads, please try again later")

// ingestLimiter is a counting semaphore over upload slots.
type ingestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// LimiterStatus is a point-in-time view of upload slot usage.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func newIngestLimiter(maxConcurrent int, maxWait time.Duration) *ingestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ingestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// acquire takes a slot. The caller must call release exactly once after a
// nil return.
func (l *ingestLimiter) acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return errServerBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *ingestLimiter) release() {
	l.active.Add(-1)
	<-l.slots
}

// waitForDrain blocks until no ingestion holds a slot or ctx is done.
func (l *ingestLimiter) waitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (l *ingestLimiter) status() LimiterStatus {
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
