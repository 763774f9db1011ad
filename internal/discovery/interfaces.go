// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package discovery keeps the model catalog in line with what each provider
// currently reports.
package discovery

import (
	"context"

	"github.com/traylinx/switchAIChat/internal/catalog"
)

// Lister is the part of a provider adapter the synchronizer needs.
type Lister interface {
	// ID returns the provider identifier.
	ID() string
	// ListModels returns the live model list, or an empty list on failure.
	ListModels(ctx context.Context) []catalog.Candidate
}

// Source supplies the listers of one run, in synchronization order.
type Source interface {
	Listers() []Lister
}

// SourceFunc adapts a function to Source.
type SourceFunc func() []Lister

// Listers calls f.
func (f SourceFunc) Listers() []Lister { return f() }
