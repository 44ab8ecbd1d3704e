// Package memory provides an in-process core.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/roster/internal/core"
)

// Store keeps documents in a map guarded by a mutex. Batches are applied
// under one lock acquisition, so they are atomic with respect to readers.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]map[string]string)}
}

// UpsertBatch replaces each document's fields.
func (s *Store) UpsertBatch(ctx context.Context, docs []core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.docs[doc.Key] = copyFields(doc.Fields)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

// Scan visits a snapshot of the documents in key order.
func (s *Store) Scan(ctx context.Context, fn func(core.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := make([]core.Document, 0, len(s.docs))
	for key, fields := range s.docs {
		snapshot = append(snapshot, core.Document{Key: key, Fields: copyFields(fields)})
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Key < snapshot[j].Key })
	for _, doc := range snapshot {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Seed stores fields under key verbatim, bypassing the ingest path. Useful
// for simulating documents written by older schemas.
func (s *Store) Seed(key string, fields map[string]string) {
	s.mu.Lock()
	s.docs[key] = copyFields(fields)
	s.mu.Unlock()
}

// Get returns the stored fields for key.
func (s *Store) Get(key string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.docs[key]
	if !ok {
		return nil, false
	}
	return copyFields(fields), true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
