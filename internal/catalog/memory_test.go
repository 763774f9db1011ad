// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := &Entry{Provider: "gemini", Name: "gemini-2.5-flash", IsAvailable: true}
	if err := s.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" {
		t.Fatal("Create should assign an id")
	}
	if err := s.Create(ctx, &Entry{Provider: "gemini", Name: "gemini-2.5-flash"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate create err = %v, want ErrDuplicate", err)
	}
	b := &Entry{Provider: "openai", Name: "gpt-4o"}
	if err := s.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Find(ctx, "gemini", "gemini-2.5-flash")
	if err != nil || got.ID != a.ID {
		t.Fatalf("Find = %v, %v", got, err)
	}

	got.DisplayName = "mutated"
	again, _ := s.Get(ctx, a.ID)
	if again.DisplayName == "mutated" {
		t.Error("store returned a shared pointer")
	}

	got.IsAvailable = false
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	avail, _ := s.List(ctx, Filter{AvailableOnly: true})
	if len(avail) != 0 {
		t.Errorf("AvailableOnly returned %d entries", len(avail))
	}
	all, _ := s.List(ctx, Filter{})
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Errorf("List order = %+v", all)
	}
	byProvider, _ := s.List(ctx, Filter{Provider: "openai"})
	if len(byProvider) != 1 || byProvider[0].Name != "gpt-4o" {
		t.Errorf("Provider filter = %+v", byProvider)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing err = %v", err)
	}
	if err := s.Update(ctx, &Entry{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v", err)
	}
}
