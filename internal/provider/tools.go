// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import "context"

// ToolDefinition describes a server-side function a model may call.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object.
	Parameters map[string]any
}

// ToolExecutor runs tool calls requested by a model.
type ToolExecutor interface {
	Definitions() []ToolDefinition
	// Execute never fails: unknown tools and tool errors are returned as a JSON
	// error payload that is fed back to the model.
	Execute(ctx context.Context, conversationID, name, arguments string) string
}
