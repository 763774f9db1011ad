// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package catalog defines the persistent model catalog: one entry per
// (provider, model name) with inferred capabilities, default generation
// settings and availability tracking.
package catalog

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no catalog entry matches.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrDuplicate is returned when creating an entry whose (provider, name) already exists.
	ErrDuplicate = errors.New("catalog entry already exists")
)

// Capabilities describes what a model accepts and can do.
type Capabilities struct {
	TextInput  bool `json:"text_input" yaml:"text-input"`
	ImageInput bool `json:"image_input" yaml:"image-input"`
	FileInput  bool `json:"file_input" yaml:"file-input"`
	WebSearch  bool `json:"web_search" yaml:"web-search"`
	ToolUse    bool `json:"tool_use" yaml:"tool-use"`
}

// GenerationConfig holds sampling settings. Nil fields use the provider default.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty" yaml:"top-p,omitempty"`
	TopK            *int     `json:"top_k,omitempty" yaml:"top-k,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty" yaml:"max-output-tokens,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Clone returns a deep copy of c.
func (c GenerationConfig) Clone() GenerationConfig {
	out := GenerationConfig{}
	if c.Temperature != nil {
		out.Temperature = Float(*c.Temperature)
	}
	if c.TopP != nil {
		out.TopP = Float(*c.TopP)
	}
	if c.TopK != nil {
		out.TopK = Int(*c.TopK)
	}
	if c.MaxOutputTokens != nil {
		out.MaxOutputTokens = Int(*c.MaxOutputTokens)
	}
	return out
}

// Equal reports whether both configs set the same values.
func (c GenerationConfig) Equal(o GenerationConfig) bool {
	return eqFloat(c.Temperature, o.Temperature) && eqFloat(c.TopP, o.TopP) &&
		eqInt(c.TopK, o.TopK) && eqInt(c.MaxOutputTokens, o.MaxOutputTokens)
}

// IsZero reports whether no field is set.
func (c GenerationConfig) IsZero() bool {
	return c.Temperature == nil && c.TopP == nil && c.TopK == nil && c.MaxOutputTokens == nil
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Entry is one model of one provider.
type Entry struct {
	ID            string           `json:"id"`
	Provider      string           `json:"provider"`
	Name          string           `json:"name"`
	DisplayName   string           `json:"display_name"`
	Capabilities  Capabilities     `json:"capabilities"`
	DefaultConfig GenerationConfig `json:"default_config"`
	ContextLength int              `json:"context_length,omitempty"`
	IsAvailable   bool             `json:"is_available"`

	// LastSeenAt is the last time the provider reported this model.
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	// MarkedAsMissingSince is set while the provider stops reporting the model.
	MarkedAsMissingSince *time.Time `json:"marked_as_missing_since,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.DefaultConfig = e.DefaultConfig.Clone()
	if e.LastSeenAt != nil {
		t := *e.LastSeenAt
		out.LastSeenAt = &t
	}
	if e.MarkedAsMissingSince != nil {
		t := *e.MarkedAsMissingSince
		out.MarkedAsMissingSince = &t
	}
	return &out
}

// Label returns the display name, or the model name when none is set.
func (e *Entry) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

// Candidate is a model reported by a provider's listing.
type Candidate struct {
	// Name is the provider model id used in API calls.
	Name string
	// DisplayName is the provider's human label, if any.
	DisplayName string
	// ContextLength is the input token limit when the provider reports it.
	ContextLength int
	// Raw carries provider-specific metadata used by capability inference.
	Raw map[string]any
}
