// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// CapabilityOverride sets individual capability flags. Nil fields are left alone.
type CapabilityOverride struct {
	TextInput  *bool `yaml:"text-input"`
	ImageInput *bool `yaml:"image-input"`
	FileInput  *bool `yaml:"file-input"`
	WebSearch  *bool `yaml:"web-search"`
	ToolUse    *bool `yaml:"tool-use"`
}

// Apply returns c with the override's set fields applied.
func (o CapabilityOverride) Apply(c Capabilities) Capabilities {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.TextInput, o.TextInput)
	set(&c.ImageInput, o.ImageInput)
	set(&c.FileInput, o.FileInput)
	set(&c.WebSearch, o.WebSearch)
	set(&c.ToolUse, o.ToolUse)
	return c
}

// StaticDefault is a curated entry of the defaults table.
type StaticDefault struct {
	Provider      string             `yaml:"provider"`
	Name          string             `yaml:"name"`
	DisplayName   string             `yaml:"display-name"`
	ContextLength int                `yaml:"context-length"`
	Capabilities  CapabilityOverride `yaml:"capabilities"`
	DefaultConfig GenerationConfig   `yaml:"default-config"`
}

// Defaults indexes static defaults by provider and model name.
type Defaults struct {
	byKey map[string]StaticDefault
}

// ParseDefaults decodes a defaults table.
func ParseDefaults(data []byte) (*Defaults, error) {
	var doc struct {
		Models []StaticDefault `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model defaults: %w", err)
	}
	d := &Defaults{byKey: make(map[string]StaticDefault, len(doc.Models))}
	for _, m := range doc.Models {
		if m.Provider == "" || m.Name == "" {
			return nil, fmt.Errorf("model defaults: entry without provider or name")
		}
		d.byKey[defaultsKey(m.Provider, m.Name)] = m
	}
	return d, nil
}

// BuiltinDefaults returns the embedded defaults table.
func BuiltinDefaults() *Defaults {
	d, err := ParseDefaults(defaultsYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// Lookup returns the static default for (provider, name).
func (d *Defaults) Lookup(provider, name string) (StaticDefault, bool) {
	if d == nil {
		return StaticDefault{}, false
	}
	m, ok := d.byKey[defaultsKey(provider, name)]
	return m, ok
}

func defaultsKey(provider, name string) string {
	return strings.ToLower(provider) + "/" + strings.ToLower(name)
}

// Describe blends heuristics and static defaults into the descriptive fields
// of an entry for candidate c of provider.
func (d *Defaults) Describe(provider string, c Candidate) (displayName string, caps Capabilities, cfg GenerationConfig, contextLength int) {
	caps = InferCapabilities(provider, c.Name, c.Raw)
	displayName = c.DisplayName
	contextLength = InferContextLength(c.Name, c.ContextLength)

	if m, ok := d.Lookup(provider, c.Name); ok {
		caps = m.Capabilities.Apply(caps)
		cfg = m.DefaultConfig.Clone()
		if m.DisplayName != "" {
			displayName = m.DisplayName
		}
		if m.ContextLength > 0 {
			contextLength = m.ContextLength
		}
	}
	if displayName == "" {
		displayName = c.Name
	}
	return displayName, caps, cfg, contextLength
}
