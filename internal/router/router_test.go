// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"context"
	"errors"
	"testing"

	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/registry"
)

type stubAdapter struct{ id string }

func (s *stubAdapter) ID() string { return s.id }
func (s *stubAdapter) GenerateResponse(context.Context, *provider.Request) provider.Reply {
	return provider.PlainReply(s.id)
}
func (s *stubAdapter) GenerateConversationTitle(context.Context, string) string { return "" }
func (s *stubAdapter) ListModels(context.Context) []catalog.Candidate { return nil }
func (s *stubAdapter) HasNativeGrounding() bool { return false }

type stubActive struct {
	sel registry.Selection
	err error
}

func (s stubActive) Get(context.Context) (registry.Selection, error) { return s.sel, s.err }

func newRouter(active ActiveModels, built map[string]int) *Router {
	factory := func(id string) Factory {
		return func() provider.Adapter {
			built[id]++
			return &stubAdapter{id: id}
		}
	}
	return New(active,
		WithProvider(constant.Gemini, factory(constant.Gemini)),
		WithProvider(constant.OpenAI, factory(constant.OpenAI)),
		WithProvider(constant.Claude, factory(constant.Claude)),
	)
}

func TestResolve(t *testing.T) {
	active := &catalog.Entry{ID: "a", Provider: constant.Claude, Name: "claude-sonnet-4"}
	activeCfg := catalog.GenerationConfig{TopK: catalog.Int(5)}

	tests := []struct {
		name         string
		active       stubActive
		model        *catalog.Entry
		wantProvider string
		wantEntry    bool
		wantErr      bool
	}{
		{"explicit model", stubActive{}, &catalog.Entry{Provider: constant.OpenAI}, constant.OpenAI, true, false},
		{"unknown provider falls back", stubActive{}, &catalog.Entry{Provider: "mistral"}, constant.Gemini, true, false},
		{"active model", stubActive{sel: registry.Selection{Entry: active, Config: activeCfg}}, nil, constant.Claude, true, false},
		{"no active model uses default", stubActive{err: registry.ErrNoActiveModel}, nil, constant.Gemini, false, false},
		{"registry failure", stubActive{err: errors.New("db down")}, nil, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.active, map[string]int{})
			res, err := r.Resolve(context.Background(), tt.model)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.Adapter.ID() != tt.wantProvider {
				t.Errorf("adapter = %s, want %s", res.Adapter.ID(), tt.wantProvider)
			}
			if (res.Entry != nil) != tt.wantEntry {
				t.Errorf("entry = %+v, want present=%v", res.Entry, tt.wantEntry)
			}
		})
	}
}

func TestResolveActiveCarriesConfig(t *testing.T) {
	cfg := catalog.GenerationConfig{Temperature: catalog.Float(0.2)}
	r := newRouter(stubActive{sel: registry.Selection{Entry: &catalog.Entry{Provider: constant.Gemini}, Config: cfg}}, map[string]int{})
	res, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Config.Equal(cfg) {
		t.Errorf("config = %+v, want %+v", res.Config, cfg)
	}
}

func TestCacheAndReset(t *testing.T) {
	built := map[string]int{}
	r := newRouter(stubActive{}, built)

	a1, _ := r.AdapterFor(constant.OpenAI)
	a2, _ := r.AdapterFor(constant.OpenAI)
	if a1 != a2 || built[constant.OpenAI] != 1 {
		t.Fatalf("adapter not cached: built %d times", built[constant.OpenAI])
	}
	r.Reset()
	a3, _ := r.AdapterFor(constant.OpenAI)
	if a3 == a1 || built[constant.OpenAI] != 2 {
		t.Errorf("Reset did not drop the cache")
	}
}

func TestAdaptersInRegistrationOrder(t *testing.T) {
	r := newRouter(stubActive{}, map[string]int{})
	var ids []string
	for _, a := range r.Adapters() {
		ids = append(ids, a.ID())
	}
	want := []string{constant.Gemini, constant.OpenAI, constant.Claude}
	if len(ids) != len(want) {
		t.Fatalf("Adapters() = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Adapters()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestMissingDefault(t *testing.T) {
	r := New(stubActive{}, WithProvider(constant.OpenAI, func() provider.Adapter { return &stubAdapter{id: constant.OpenAI} }))
	if _, err := r.AdapterFor("unknown"); err == nil {
		t.Error("expected error when the default provider is not registered")
	}
}
