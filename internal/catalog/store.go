// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import "context"

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	Provider      string
	AvailableOnly bool
}

// Store persists catalog entries. List returns entries in creation order.
type Store interface {
	Get(ctx context.Context, id string) (*Entry, error)
	Find(ctx context.Context, provider, name string) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]*Entry, error)
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
}
