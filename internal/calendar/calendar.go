// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package calendar stores calendar events created through the calendar tools.
package calendar

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned for events without a title or with an end before the start.
var ErrInvalidEvent = errors.New("invalid calendar event")

// Event is one calendar entry.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"startTime"`
	End         time.Time `json:"endTime"`
	// ConversationID is set when the event is attributed to a conversation.
	ConversationID string    `json:"conversationId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Criteria filters events. Zero values match everything.
type Criteria struct {
	// From and To bound the event start time, inclusive.
	From time.Time
	To   time.Time
	// ConversationID restricts results to one conversation.
	ConversationID string
}

// Store persists events.
type Store interface {
	CreateEvent(ctx context.Context, e *Event) error
	FindEventsByCriteria(ctx context.Context, c Criteria) ([]Event, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// CreateEvent validates e, assigns its id and creation time, and stores a copy.
func (s *MemoryStore) CreateEvent(_ context.Context, e *Event) error {
	if e.Title == "" || e.Start.IsZero() || e.End.IsZero() || e.End.Before(e.Start) {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = s.now()

	s.mu.Lock()
	s.events = append(s.events, *e)
	s.mu.Unlock()
	return nil
}

// FindEventsByCriteria returns matching events ordered by start time.
func (s *MemoryStore) FindEventsByCriteria(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Matches reports whether e satisfies the criteria.
func (c Criteria) Matches(e Event) bool {
	if c.ConversationID != "" && e.ConversationID != c.ConversationID {
		return false
	}
	if !c.From.IsZero() && e.Start.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && e.Start.After(c.To) {
		return false
	}
	return true
}

var _ Store = (*MemoryStore)(nil)
