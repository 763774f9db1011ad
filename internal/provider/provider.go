// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package provider defines the contract every LLM backend adapter implements,
// along with the message, reply and streaming types shared by the adapters.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/traylinx/switchAIChat/internal/catalog"
)

// ErrNotConfigured is reported when an adapter has no credentials.
var ErrNotConfigured = errors.New("provider is not configured")

// NotConfiguredText is returned as the reply text of an unconfigured adapter.
const NotConfiguredText = "This model provider is not configured. Please contact the administrator."

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AttachmentKind distinguishes images from other files.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment references a file stored by the attachment store.
type Attachment struct {
	Kind AttachmentKind `json:"kind"`
	// Ref is the stored file name or object key.
	Ref string `json:"ref"`
	// MimeType overrides the type derived from the file extension.
	MimeType string `json:"mime_type,omitempty"`
}

// Message is one history item.
type Message struct {
	Role       Role        `json:"role"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Request carries everything an adapter needs for one generation.
type Request struct {
	// Model is the provider model name.
	Model string
	// Config is the sampling configuration of the active selection.
	Config catalog.GenerationConfig
	// History is ordered oldest first and ends with the current user message.
	History      []Message
	SystemPrompt string
	// UseWebSearch asks for grounding. Adapters without native grounding ignore it;
	// the orchestrator injects SearchResults instead.
	UseWebSearch bool
	// SearchResults is a preformatted block appended to the system prompt.
	SearchResults string
	// AllowTools offers the tool schemas to adapters that support tool calling.
	AllowTools bool
	// ConversationID attributes tool side effects.
	ConversationID string
}

// Adapter is implemented by every backend.
type Adapter interface {
	// ID returns the provider identifier.
	ID() string
	// GenerateResponse never fails: errors become a Reply with Failed set and a
	// human-readable Text.
	GenerateResponse(ctx context.Context, req *Request) Reply
	// GenerateConversationTitle returns a short title, or the fallback title on failure.
	GenerateConversationTitle(ctx context.Context, firstMessage string) string
	// ListModels returns the provider's models, or an empty list after
	// exhausting retries or when unconfigured.
	ListModels(ctx context.Context) []catalog.Candidate
	// HasNativeGrounding reports whether the provider grounds on web search itself.
	HasNativeGrounding() bool
}

// ChunkKind tags stream chunks.
type ChunkKind int

const (
	// ChunkData carries a text delta.
	ChunkData ChunkKind = iota
	// ChunkError carries a terminal error.
	ChunkError
)

// Chunk is one item of a provider stream. The channel is closed after the last chunk.
type Chunk struct {
	Kind ChunkKind
	Text string
	Err  error
}

// Streamer is implemented by adapters that can stream a response.
type Streamer interface {
	// StreamResponse starts a streaming generation. Cancelling ctx aborts it and
	// closes the returned channel.
	StreamResponse(ctx context.Context, req *Request) (<-chan Chunk, error)
}
