// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package constant defines provider identifiers, tool names and protocol limits
// shared across the switchAIChat gateway.
package constant

import "time"

const (
	// Gemini represents the Google Gemini provider identifier. It is the primary
	// provider: native search grounding and SSE streaming.
	Gemini = "gemini"

	// OpenAI represents the OpenAI-compatible chat completions provider identifier.
	OpenAI = "openai"

	// Claude represents the Anthropic messages provider identifier.
	Claude = "claude"

	// DefaultProvider is used by the router when a model names an unknown provider.
	DefaultProvider = Gemini
)

// Tool names exposed to tool-calling models. They are part of the wire contract
// with stored tool schemas and must not be renamed.
const (
	ToolCurrentDateTime = "obterDataHoraAtual"
	ToolCreateEvent     = "criar_evento_calendario"
	ToolListEvents      = "listar_eventos_calendario"
)

const (
	// StreamTimeout is the hard wall-clock cap of a streaming session.
	StreamTimeout = 60 * time.Second
	// StreamTerminalGrace bounds how long a finished stream waits for an idle
	// subscriber to take the terminal event.
	StreamTerminalGrace = 5 * time.Second

	// CatalogGracePeriod is how long a catalog entry may be absent from its
	// provider's listing before it is marked unavailable.
	CatalogGracePeriod = 72 * time.Hour

	// ListModelsAttempts and ListModelsRetryDelay bound listModels retrying.
	ListModelsAttempts   = 3
	ListModelsRetryDelay = 5 * time.Second

	// FallbackTitle is stored when title generation fails.
	FallbackTitle = "New conversation"

	// MaxStreamingScannerBuffer is the maximum buffer size for the streaming scanner (1MB).
	MaxStreamingScannerBuffer = 1 * 1024 * 1024
)
