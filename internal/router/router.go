// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package router resolves the provider adapter serving a model.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/registry"
)

// Factory builds the adapter of one provider.
type Factory func() provider.Adapter

// ActiveModels is the part of the active model registry the router needs.
type ActiveModels interface {
	Get(ctx context.Context) (registry.Selection, error)
}

// Resolution is the adapter chosen for a request. Entry is nil when no model
// could be determined and the default provider was used.
type Resolution struct {
	Adapter provider.Adapter
	Entry   *catalog.Entry
	Config  catalog.GenerationConfig
}

type registration struct {
	id      string
	factory Factory
}

// Router maps models to adapters and caches constructed adapters.
type Router struct {
	active        ActiveModels
	registrations []registration
	defaultID     string

	mu    sync.Mutex
	cache map[string]provider.Adapter
}

// Option customizes a Router.
type Option func(*Router)

// WithProvider registers the factory of provider id. Registration order is the
// order Adapters returns.
func WithProvider(id string, f Factory) Option {
	return func(r *Router) { r.registrations = append(r.registrations, registration{id: id, factory: f}) }
}

// WithDefaultProvider overrides the fallback provider.
func WithDefaultProvider(id string) Option {
	return func(r *Router) { r.defaultID = id }
}

// New creates a router.
func New(active ActiveModels, opts ...Option) *Router {
	r := &Router{active: active, defaultID: constant.DefaultProvider, cache: make(map[string]provider.Adapter)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the adapter for model, or for the active model when model is
// nil. When neither yields a model the default provider serves the request.
func (r *Router) Resolve(ctx context.Context, model *catalog.Entry) (Resolution, error) {
	if model != nil {
		adapter, err := r.AdapterFor(model.Provider)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Adapter: adapter, Entry: model, Config: model.DefaultConfig.Clone()}, nil
	}

	sel, err := r.active.Get(ctx)
	if err != nil {
		if !errors.Is(err, registry.ErrNoActiveModel) {
			return Resolution{}, err
		}
		log.WithField("provider", r.defaultID).Warn("no active model; routing to the default provider")
		adapter, errAdapter := r.AdapterFor(r.defaultID)
		if errAdapter != nil {
			return Resolution{}, errAdapter
		}
		return Resolution{Adapter: adapter}, nil
	}
	adapter, err := r.AdapterFor(sel.Entry.Provider)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Adapter: adapter, Entry: sel.Entry, Config: sel.Config}, nil
}

// AdapterFor returns the cached adapter of providerID. Unknown providers fall
// back to the default provider with a warning.
func (r *Router) AdapterFor(providerID string) (provider.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.lookup(providerID)
	if !ok {
		log.WithFields(log.Fields{"provider": providerID, "fallback": r.defaultID}).Warn("unsupported provider; using the default adapter")
		if reg, ok = r.lookup(r.defaultID); !ok {
			return nil, fmt.Errorf("no adapter registered for default provider %q", r.defaultID)
		}
	}
	if a, cached := r.cache[reg.id]; cached {
		return a, nil
	}
	a := reg.factory()
	r.cache[reg.id] = a
	return a, nil
}

// Adapters returns one adapter per registered provider.
func (r *Router) Adapters() []provider.Adapter {
	out := make([]provider.Adapter, 0, len(r.registrations))
	for _, reg := range r.registrations {
		a, err := r.AdapterFor(reg.id)
		if err == nil {
			out = append(out, a)
		}
	}
	return out
}

// Reset drops cached adapters; the next lookup constructs them again.
func (r *Router) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]provider.Adapter)
	r.mu.Unlock()
	log.Debug("provider adapter cache reset")
}

func (r *Router) lookup(id string) (registration, bool) {
	for _, reg := range r.registrations {
		if reg.id == id {
			return reg, true
		}
	}
	return registration{}, false
}
