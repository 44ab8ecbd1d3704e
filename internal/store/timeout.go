package store

import (
	"context"
	"time"

	"github.com/JonMunkholm/roster/internal/core"
)

// timeoutStore bounds each call on the wrapped store with a deadline.
type timeoutStore struct {
	next    core.Store
	timeout time.Duration
}

// WithTimeout wraps st so each call runs under its own deadline of d.
// A non-positive d returns st unchanged.
func WithTimeout(st core.Store, d time.Duration) core.Store {
	if d <= 0 {
		return st
	}
	return &timeoutStore{next: st, timeout: d}
}

func (t *timeoutStore) UpsertBatch(ctx context.Context, docs []core.Document) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UpsertBatch(ctx, docs)
}

func (t *timeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Delete(ctx, key)
}

// Scan bounds the whole walk, callbacks included.
func (t *timeoutStore) Scan(ctx context.Context, fn func(core.Document) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Scan(ctx, fn)
}

// Ping forwards to the wrapped store when it can be pinged.
func (t *timeoutStore) Ping(ctx context.Context) error {
	p, ok := t.next.(core.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return p.Ping(ctx)
}
