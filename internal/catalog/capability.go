// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	"strings"

	"github.com/traylinx/switchAIChat/internal/constant"
)

// capabilityRule adds capabilities to models whose lowercased id contains any
// of match and none of exclude. An empty provider matches every provider.
type capabilityRule struct {
	provider string
	match    []string
	exclude  []string
	apply    func(*Capabilities)
}

// nonChatPatterns identify models that cannot hold a conversation.
var nonChatPatterns = []string{
	"embedding", "embed-", "text-embedding", "whisper", "tts", "dall-e",
	"imagen", "moderation", "aqa", "transcribe", "veo-",
}

// capabilityRules are evaluated in order; later rules win.
var capabilityRules = []capabilityRule{
	{
		match: []string{"vision", "4o", "gpt-4", "gpt-5", "gemini", "claude-3", "claude-4",
			"claude-sonnet-4", "claude-opus-4", "claude-haiku-4", "llava", "pixtral", "multimodal", "-vl"},
		exclude: nonChatPatterns,
		apply:   func(c *Capabilities) { c.ImageInput = true },
	},
	{
		provider: constant.Gemini,
		match:    []string{"gemini"},
		exclude:  nonChatPatterns,
		apply: func(c *Capabilities) {
			c.FileInput = true
			c.WebSearch = true
		},
	},
	{
		provider: constant.Claude,
		match:    []string{"claude-3", "claude-4", "claude-sonnet-4", "claude-opus-4", "claude-haiku-4"},
		apply:    func(c *Capabilities) { c.FileInput = true },
	},
	{
		provider: constant.OpenAI,
		match:    []string{"gpt-", "o1", "o3", "o4"},
		exclude:  append([]string{"instruct", "audio", "realtime"}, nonChatPatterns...),
		apply:    func(c *Capabilities) { c.ToolUse = true },
	},
	{
		provider: constant.OpenAI,
		match:    []string{"search-preview", "search-api"},
		apply:    func(c *Capabilities) { c.WebSearch = true },
	},
	{
		match: nonChatPatterns,
		apply: func(c *Capabilities) { *c = Capabilities{} },
	},
}

// InferCapabilities derives capabilities from the provider, the model id and
// provider-reported metadata. It is a pure function of its inputs.
func InferCapabilities(provider, modelID string, raw map[string]any) Capabilities {
	id := strings.ToLower(modelID)
	c := Capabilities{TextInput: true}
	for _, rule := range capabilityRules {
		if rule.provider != "" && rule.provider != provider {
			continue
		}
		if containsAny(id, rule.exclude) || !containsAny(id, rule.match) {
			continue
		}
		rule.apply(&c)
	}

	// Gemini reports the generation methods a model accepts.
	if methods, ok := raw["supportedGenerationMethods"]; ok {
		if !hasString(methods, "generateContent") {
			return Capabilities{}
		}
	}
	return c
}

// InferContextLength returns the reported context length, or an estimate from the model id.
func InferContextLength(modelID string, reported int) int {
	if reported > 0 {
		return reported
	}
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "200k"):
		return 200000
	case strings.Contains(id, "128k"):
		return 128000
	case strings.Contains(id, "gemini-1.5-pro"), strings.Contains(id, "gemini-2"):
		return 1048576
	case strings.Contains(id, "gemini"):
		return 128000
	case strings.Contains(id, "claude"):
		return 200000
	case strings.Contains(id, "gpt-4.1"):
		return 1047576
	case strings.Contains(id, "gpt-4o"), strings.Contains(id, "gpt-4-turbo"), strings.Contains(id, "o1"), strings.Contains(id, "o3"):
		return 128000
	case strings.Contains(id, "gpt-3.5"):
		return 16385
	}
	return 0
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func hasString(v any, want string) bool {
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s == want {
				return true
			}
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}
