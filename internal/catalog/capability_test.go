// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCapabilities(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		raw      map[string]any
		want     Capabilities
	}{
		{
			name:     "gemini flash",
			provider: "gemini",
			model:    "gemini-2.5-flash",
			want:     Capabilities{TextInput: true, ImageInput: true, FileInput: true, WebSearch: true},
		},
		{
			name:     "gemini embedding",
			provider: "gemini",
			model:    "text-embedding-004",
			want:     Capabilities{},
		},
		{
			name:     "gemini without generateContent",
			provider: "gemini",
			model:    "gemini-2.0-flash-live",
			raw:      map[string]any{"supportedGenerationMethods": []any{"bidiGenerateContent"}},
			want:     Capabilities{},
		},
		{
			name:     "gemma on gemini has no grounding",
			provider: "gemini",
			model:    "gemma-3-27b-it",
			raw:      map[string]any{"supportedGenerationMethods": []any{"generateContent", "countTokens"}},
			want:     Capabilities{TextInput: true},
		},
		{
			name:     "gpt-4o",
			provider: "openai",
			model:    "gpt-4o",
			want:     Capabilities{TextInput: true, ImageInput: true, ToolUse: true},
		},
		{
			name:     "gpt-3.5 text only",
			provider: "openai",
			model:    "gpt-3.5-turbo",
			want:     Capabilities{TextInput: true, ToolUse: true},
		},
		{
			name:     "openai search preview",
			provider: "openai",
			model:    "gpt-4o-search-preview",
			want:     Capabilities{TextInput: true, ImageInput: true, ToolUse: true, WebSearch: true},
		},
		{
			name:     "whisper",
			provider: "openai",
			model:    "whisper-1",
			want:     Capabilities{},
		},
		{
			name:     "claude 3.5 sonnet",
			provider: "claude",
			model:    "claude-3-5-sonnet-20241022",
			want:     Capabilities{TextInput: true, ImageInput: true, FileInput: true},
		},
		{
			name:     "gemini-named model on other provider",
			provider: "openai",
			model:    "google/gemini-2.0-flash",
			want:     Capabilities{TextInput: true, ImageInput: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferCapabilities(tt.provider, tt.model, tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferCapabilities_Pure(t *testing.T) {
	raw := map[string]any{"supportedGenerationMethods": []any{"generateContent"}}
	first := InferCapabilities("gemini", "Gemini-1.5-Pro", raw)
	second := InferCapabilities("gemini", "Gemini-1.5-Pro", raw)
	assert.Equal(t, first, second)
	assert.True(t, first.WebSearch, "case-insensitive model ids")
}

func TestInferContextLength(t *testing.T) {
	assert.Equal(t, 32768, InferContextLength("anything", 32768))
	assert.Equal(t, 200000, InferContextLength("claude-3-opus", 0))
	assert.Equal(t, 1048576, InferContextLength("gemini-2.0-flash", 0))
	assert.Equal(t, 0, InferContextLength("mystery-model", 0))
}
