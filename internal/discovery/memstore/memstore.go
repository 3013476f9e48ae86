// internal/discovery/memstore/memstore.go

// Package memstore provides an in-memory implementation of discovery.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/tandem/internal/discovery"
)

// Store holds discovery runs in memory. Suitable for dev/testing.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*discovery.Run // run ID -> run
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		runs: make(map[string]*discovery.Run),
	}
}

// Get retrieves a run by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*discovery.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the run.
func (s *Store) Put(_ context.Context, r *discovery.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) List(_ context.Context, limit int) ([]*discovery.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*discovery.Run, 0, len(s.runs))
	for _, r := range s.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
