// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	events := []*Event{
		{Title: "later", Start: base.Add(48 * time.Hour), End: base.Add(49 * time.Hour)},
		{Title: "scoped", Start: base, End: base.Add(time.Hour), ConversationID: "main"},
		{Title: "tomorrow", Start: base.Add(24 * time.Hour), End: base.Add(25 * time.Hour)},
	}
	for _, e := range events {
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent(%s): %v", e.Title, err)
		}
		if e.ID == "" || e.CreatedAt.IsZero() {
			t.Fatalf("CreateEvent(%s) did not assign id or creation time", e.Title)
		}
	}

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"all ordered by start", Criteria{}, []string{"scoped", "tomorrow", "later"}},
		{"conversation", Criteria{ConversationID: "main"}, []string{"scoped"}},
		{"range", Criteria{From: base.Add(time.Hour), To: base.Add(30 * time.Hour)}, []string{"tomorrow"}},
		{"inclusive bounds", Criteria{From: base, To: base}, []string{"scoped"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindEventsByCriteria(ctx, tt.c)
			if err != nil {
				t.Fatalf("FindEventsByCriteria: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Title != tt.want[i] {
					t.Errorf("event %d = %q, want %q", i, e.Title, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := NewMemoryStore()
	start := time.Now()
	for _, e := range []*Event{
		{Start: start, End: start},
		{Title: "backwards", Start: start, End: start.Add(-time.Minute)},
		{Title: "no end", Start: start},
	} {
		if err := s.CreateEvent(context.Background(), e); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("CreateEvent(%+v) error = %v, want ErrInvalidEvent", e, err)
		}
	}
}
