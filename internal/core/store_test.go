package core

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// testStore is an in-memory Store double. When failAt > 0, the failAt-th
// call to UpsertBatch (1-based) fails without writing anything.
type testStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]string
	batches [][]Document
	failAt  int
	scanErr error
	delErr  error
}

var errStoreDown = errors.New("store: connection reset by peer")

func newTestStore() *testStore {
	return &testStore{docs: make(map[string]map[string]string)}
}

func (s *testStore) UpsertBatch(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches = append(s.batches, docs)
	if s.failAt > 0 && len(s.batches) == s.failAt {
		return errStoreDown
	}
	for _, d := range docs {
		fields := make(map[string]string, len(d.Fields))
		for k, v := range d.Fields {
			fields[k] = v
		}
		s.docs[d.Key] = fields
	}
	return nil
}

func (s *testStore) Delete(ctx context.Context, key string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

func (s *testStore) Scan(ctx context.Context, fn func(Document) error) error {
	if s.scanErr != nil {
		return s.scanErr
	}
	s.mu.Lock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	// Reverse order so callers cannot rely on store ordering.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	for _, k := range keys {
		if err := fn(Document{Key: k, Fields: s.docs[k]}); err != nil {
			return err
		}
	}
	return nil
}

func (s *testStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *testStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func newTestService(st Store, opts Options) *Service {
	svc, err := NewService(st, opts)
	if err != nil {
		panic(err)
	}
	return svc
}
