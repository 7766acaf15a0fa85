package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	results map[string]store.Record
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		results: make(map[string]store.Record),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveResult inserts or replaces a record, keyed by ID.
func (s *Store) SaveResult(ctx context.Context, r store.Record) error {
	if r.ID == "" {
		return fmt.Errorf("%w: record without ID", internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[r.ID] = r.Copy()
	return nil
}

// GetResult returns a record by ID.
func (s *Store) GetResult(ctx context.Context, id string) (store.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return store.Record{}, false, nil
	}
	return r.Copy(), true, nil
}

// FindResult returns the newest record with the given key.
func (s *Store) FindResult(ctx context.Context, key string) (store.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.newestFirst() {
		if r := s.results[id]; r.Key == key {
			return r.Copy(), true, nil
		}
	}
	return store.Record{}, false, nil
}

// ListResults returns records for a network, newest first.
func (s *Store) ListResults(ctx context.Context, network string, limit int) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var out []store.Record
	for _, id := range s.newestFirst() {
		r := s.results[id]
		if network != "" && r.Network != network {
			continue
		}
		out = append(out, r.Copy())
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) newestFirst() []string {
	ids := make([]string, 0, len(s.results))
	for id := range s.results {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}
