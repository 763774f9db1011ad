// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyEnvelope(t *testing.T) {
	plain := PlainReply("hello")
	assert.False(t, plain.IsGrounded())
	assert.Equal(t, "hello", plain.Envelope())

	md := &GroundingMetadata{
		WebSearchQueries: []string{"weather lisbon"},
		Sources:          []GroundingSource{{Title: "IPMA", URI: "https://ipma.pt"}},
	}
	grounded := GroundedReply("Sunny.", md)
	require.True(t, grounded.IsGrounded())

	env := grounded.Envelope()
	assert.Contains(t, env, `"groundingMetadata"`)

	back := ParseEnvelope(env)
	require.True(t, back.IsGrounded())
	assert.Equal(t, "Sunny.", back.Text)
	assert.Equal(t, md.Sources, back.Grounding.Sources)
}

func TestParseEnvelope_PlainStrings(t *testing.T) {
	for _, s := range []string{"", "hello", `{"text":"no metadata"}`, "{not json"} {
		r := ParseEnvelope(s)
		assert.False(t, r.IsGrounded(), s)
		assert.Equal(t, s, r.Text)
	}
}

func TestFailedReply(t *testing.T) {
	r := FailedReply("boom")
	assert.True(t, r.Failed)
	assert.False(t, r.IsGrounded())
}
