// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Entries are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get returns the entry with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// Find returns the entry for (provider, name).
func (s *MemoryStore) Find(_ context.Context, provider, name string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.findLocked(provider, name); e != nil {
		return e.Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) findLocked(provider, name string) *Entry {
	for _, id := range s.order {
		e := s.entries[id]
		if e.Provider == provider && e.Name == name {
			return e
		}
	}
	return nil
}

// List returns matching entries in creation order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		if filter.Provider != "" && e.Provider != filter.Provider {
			continue
		}
		if filter.AvailableOnly && !e.IsAvailable {
			continue
		}
		out = append(out, e.Clone())
	}
	return out, nil
}

// Create inserts e, assigning an id when empty.
func (s *MemoryStore) Create(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(e.Provider, e.Name) != nil {
		return ErrDuplicate
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, exists := s.entries[e.ID]; exists {
		return ErrDuplicate
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	s.entries[e.ID] = e.Clone()
	s.order = append(s.order, e.ID)
	return nil
}

// Update replaces the stored entry with the same id.
func (s *MemoryStore) Update(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		return ErrNotFound
	}
	s.entries[e.ID] = e.Clone()
	return nil
}
