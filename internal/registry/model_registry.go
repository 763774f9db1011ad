// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry holds the process-wide active model selection: the catalog
// entry used when a request does not name a model, and its generation config.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/constant"
)

var (
	// ErrNoActiveModel is returned when no catalog entry can be selected.
	ErrNoActiveModel = errors.New("no active model available")
	// ErrModelNotFound is returned when setting an id the catalog does not know.
	ErrModelNotFound = errors.New("model not found")
)

// State is the lifecycle state of the active model slot.
type State int

const (
	StateUnset State = iota
	StateSelecting
	StateSet
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateSelecting:
		return "selecting"
	case StateSet:
		return "set"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Selection is the resolved active model.
type Selection struct {
	Entry  *catalog.Entry
	Config catalog.GenerationConfig
}

// ActiveModelRegistry guards the single active model slot.
type ActiveModelRegistry struct {
	store   catalog.Store
	primary func() string

	mu      sync.Mutex
	state   State
	modelID string
	config  catalog.GenerationConfig
	// gen increments on every write so a default selection does not overwrite
	// a concurrent explicit Set.
	gen uint64
}

// New creates an unset registry over store. primary returns the preferred
// provider for default selection; nil means the default provider.
func New(store catalog.Store, primary func() string) *ActiveModelRegistry {
	if primary == nil {
		primary = func() string { return constant.DefaultProvider }
	}
	return &ActiveModelRegistry{store: store, primary: primary}
}

// State returns the current slot state.
func (r *ActiveModelRegistry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Get returns the active model, selecting a default when unset. When the
// selected entry has vanished from the catalog the slot is cleared and
// selection is retried once.
func (r *ActiveModelRegistry) Get(ctx context.Context) (Selection, error) {
	r.mu.Lock()
	state, id, cfg := r.state, r.modelID, r.config.Clone()
	r.mu.Unlock()

	if state == StateSet {
		entry, err := r.store.Get(ctx, id)
		switch {
		case err == nil:
			return Selection{Entry: entry, Config: cfg}, nil
		case errors.Is(err, catalog.ErrNotFound):
			log.WithField("model_id", id).Warn("active model no longer in catalog; reselecting")
			r.clearIf(id)
		default:
			return Selection{}, fmt.Errorf("failed to load active model: %w", err)
		}
	}
	return r.selectDefault(ctx)
}

// Set validates modelID against the catalog and replaces the selection. A nil
// cfg selects the entry's default config.
func (r *ActiveModelRegistry) Set(ctx context.Context, modelID string, cfg *catalog.GenerationConfig) (Selection, error) {
	entry, err := r.store.Get(ctx, modelID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Selection{}, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
		}
		return Selection{}, fmt.Errorf("failed to load model: %w", err)
	}
	effective := entry.DefaultConfig.Clone()
	if cfg != nil {
		effective = cfg.Clone()
	}

	r.mu.Lock()
	r.state = StateSet
	r.modelID = entry.ID
	r.config = effective.Clone()
	r.gen++
	r.mu.Unlock()

	log.WithFields(log.Fields{"provider": entry.Provider, "model": entry.Name}).Info("active model set")
	return Selection{Entry: entry, Config: effective}, nil
}

// UpdateConfig replaces the config of the active model, selecting a default
// model first when none is set.
func (r *ActiveModelRegistry) UpdateConfig(ctx context.Context, cfg catalog.GenerationConfig) (Selection, error) {
	sel, err := r.Get(ctx)
	if err != nil {
		return Selection{}, err
	}
	r.mu.Lock()
	if r.state != StateSet || r.modelID != sel.Entry.ID {
		r.mu.Unlock()
		return Selection{}, fmt.Errorf("active model changed concurrently")
	}
	r.config = cfg.Clone()
	r.gen++
	r.mu.Unlock()
	return Selection{Entry: sel.Entry, Config: cfg.Clone()}, nil
}

// Clear resets the slot to unset.
func (r *ActiveModelRegistry) Clear() {
	r.mu.Lock()
	r.reset()
	r.mu.Unlock()
}

func (r *ActiveModelRegistry) clearIf(id string) {
	r.mu.Lock()
	if r.state == StateSet && r.modelID == id {
		r.reset()
	}
	r.mu.Unlock()
}

func (r *ActiveModelRegistry) reset() {
	r.state = StateUnset
	r.modelID = ""
	r.config = catalog.GenerationConfig{}
	r.gen++
}

func (r *ActiveModelRegistry) selectDefault(ctx context.Context) (Selection, error) {
	for {
		sel, retry, err := r.trySelectDefault(ctx)
		if !retry {
			return sel, err
		}
		if errCtx := ctx.Err(); errCtx != nil {
			return Selection{}, errCtx
		}
		log.Debug("active model cleared during default selection, retrying")
	}
}

// trySelectDefault runs one selection attempt. retry is true when a concurrent
// Clear invalidated the attempt.
func (r *ActiveModelRegistry) trySelectDefault(ctx context.Context) (Selection, bool, error) {
	r.mu.Lock()
	if r.state == StateUnset {
		r.state = StateSelecting
	}
	gen := r.gen
	r.mu.Unlock()

	entry, err := r.pickDefault(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		// A concurrent writer won; report its selection.
		if r.state == StateSet {
			if current, errGet := r.store.Get(ctx, r.modelID); errGet == nil {
				return Selection{Entry: current, Config: r.config.Clone()}, false, nil
			}
		}
		return Selection{}, true, nil
	}
	if err != nil || entry == nil {
		if r.state == StateSelecting {
			r.state = StateUnset
		}
		if err != nil {
			return Selection{}, false, fmt.Errorf("failed to select default model: %w", err)
		}
		return Selection{}, false, ErrNoActiveModel
	}
	r.state = StateSet
	r.modelID = entry.ID
	r.config = entry.DefaultConfig.Clone()
	r.gen++
	log.WithFields(log.Fields{"provider": entry.Provider, "model": entry.Name}).Info("default active model selected")
	return Selection{Entry: entry, Config: entry.DefaultConfig.Clone()}, false, nil
}

// pickDefault returns the first available chat model of the primary provider,
// else the first available chat model of any provider.
func (r *ActiveModelRegistry) pickDefault(ctx context.Context) (*catalog.Entry, error) {
	entries, err := r.store.List(ctx, catalog.Filter{AvailableOnly: true})
	if err != nil {
		return nil, err
	}
	primary := r.primary()
	var fallback *catalog.Entry
	for _, e := range entries {
		if !e.Capabilities.TextInput {
			continue
		}
		if e.Provider == primary {
			return e, nil
		}
		if fallback == nil {
			fallback = e
		}
	}
	return fallback, nil
}
