// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"github.com/goccy/go-json"
)

// GroundingSource is one web page a grounded answer cites.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GroundingMetadata describes the search grounding of a reply.
type GroundingMetadata struct {
	WebSearchQueries []string          `json:"webSearchQueries,omitempty"`
	Sources          []GroundingSource `json:"sources,omitempty"`
	// SearchEntryPoint is provider-rendered HTML for the search suggestion chip.
	SearchEntryPoint string `json:"searchEntryPoint,omitempty"`
	// Raw is the provider's metadata object, kept for clients that render it.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Reply is either a plain reply or a grounded reply (Grounding != nil).
type Reply struct {
	Text      string
	Grounding *GroundingMetadata
	// Failed marks Text as a human-readable error message.
	Failed bool
}

// PlainReply builds a plain reply.
func PlainReply(text string) Reply {
	return Reply{Text: text}
}

// GroundedReply builds a grounded reply. Nil metadata yields a plain reply.
func GroundedReply(text string, md *GroundingMetadata) Reply {
	return Reply{Text: text, Grounding: md}
}

// FailedReply builds an error reply.
func FailedReply(text string) Reply {
	return Reply{Text: text, Failed: true}
}

// IsGrounded reports whether the reply carries grounding metadata.
func (r Reply) IsGrounded() bool {
	return r.Grounding != nil
}

type envelope struct {
	Text              string             `json:"text"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata"`
}

// Envelope returns the persisted form: the bare text for plain replies, or the
// JSON envelope {"text", "groundingMetadata"} for grounded ones.
func (r Reply) Envelope() string {
	if !r.IsGrounded() {
		return r.Text
	}
	data, err := json.Marshal(envelope{Text: r.Text, GroundingMetadata: r.Grounding})
	if err != nil {
		return r.Text
	}
	return string(data)
}

// ParseEnvelope is the inverse of Envelope. Strings that are not an envelope are
// returned as plain replies.
func ParseEnvelope(s string) Reply {
	if len(s) == 0 || s[0] != '{' {
		return PlainReply(s)
	}
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil || env.GroundingMetadata == nil {
		return PlainReply(s)
	}
	return GroundedReply(env.Text, env.GroundingMetadata)
}
