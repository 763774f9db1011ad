// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/provider"
)

// buildPayload assembles a generateContent request body.
func (a *Adapter) buildPayload(ctx context.Context, req *provider.Request) ([]byte, error) {
	payload := []byte(`{"contents":[]}`)
	var err error

	idx := 0
	for _, m := range req.History {
		role := "user"
		if m.Role == provider.RoleAssistant {
			role = "model"
		}
		content := []byte(`{"parts":[]}`)
		content, _ = sjson.SetBytes(content, "role", role)
		parts := 0
		if m.Text != "" {
			content, _ = sjson.SetBytes(content, fmt.Sprintf("parts.%d.text", parts), m.Text)
			parts++
		}
		if m.Attachment != nil && m.Role == provider.RoleUser {
			data, mimeType, errLoad := provider.LoadAttachment(ctx, a.attachments, m.Attachment)
			if errLoad != nil {
				log.WithField("provider", constant.Gemini).WithError(errLoad).Warn("attachment skipped")
			} else {
				part := []byte(`{"inline_data":{}}`)
				part, _ = sjson.SetBytes(part, "inline_data.mime_type", mimeType)
				part, _ = sjson.SetBytes(part, "inline_data.data", base64.StdEncoding.EncodeToString(data))
				content, _ = sjson.SetRawBytes(content, fmt.Sprintf("parts.%d", parts), part)
				parts++
			}
		}
		if parts == 0 {
			continue
		}
		if payload, err = sjson.SetRawBytes(payload, fmt.Sprintf("contents.%d", idx), content); err != nil {
			return nil, fmt.Errorf("failed to build contents: %w", err)
		}
		idx++
	}
	if idx == 0 {
		return nil, fmt.Errorf("request has no content")
	}

	if system := provider.SystemPromptWithSearch(req.SystemPrompt, req.SearchResults); system != "" {
		payload, _ = sjson.SetBytes(payload, "system_instruction.parts.0.text", system)
	}

	cfg := req.Config
	if cfg.Temperature != nil {
		payload, _ = sjson.SetBytes(payload, "generationConfig.temperature", *cfg.Temperature)
	}
	if cfg.TopP != nil {
		payload, _ = sjson.SetBytes(payload, "generationConfig.topP", *cfg.TopP)
	}
	if cfg.TopK != nil {
		payload, _ = sjson.SetBytes(payload, "generationConfig.topK", *cfg.TopK)
	}
	switch {
	case cfg.MaxOutputTokens != nil:
		payload, _ = sjson.SetBytes(payload, "generationConfig.maxOutputTokens", *cfg.MaxOutputTokens)
	case a.maxTokens > 0:
		payload, _ = sjson.SetBytes(payload, "generationConfig.maxOutputTokens", a.maxTokens)
	}

	if req.UseWebSearch {
		payload, _ = sjson.SetRawBytes(payload, "tools", []byte(`[{"google_search":{}}]`))
	}
	return payload, nil
}

// parseResponse extracts the answer text and grounding metadata of a
// generateContent response (or one SSE frame of a streamed response).
func parseResponse(body []byte) (string, *provider.GroundingMetadata, error) {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return "", nil, fmt.Errorf("%s", msg.String())
	}
	cand := gjson.GetBytes(body, "candidates.0")
	if !cand.Exists() {
		if reason := gjson.GetBytes(body, "promptFeedback.blockReason").String(); reason != "" {
			return "", nil, fmt.Errorf("prompt blocked: %s", reason)
		}
		return "", nil, fmt.Errorf("response has no candidates")
	}
	text := candidateText(cand)
	if text == "" {
		reason := cand.Get("finishReason").String()
		if reason != "" && reason != "STOP" && reason != "MAX_TOKENS" {
			return "", nil, fmt.Errorf("empty response (finish reason %s)", reason)
		}
	}
	return text, parseGrounding(cand.Get("groundingMetadata")), nil
}

func candidateText(cand gjson.Result) string {
	var text string
	cand.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if part.Get("thought").Bool() {
			return true
		}
		text += part.Get("text").String()
		return true
	})
	return text
}

func parseGrounding(gm gjson.Result) *provider.GroundingMetadata {
	if !gm.Exists() || !gm.IsObject() {
		return nil
	}
	md := &provider.GroundingMetadata{
		SearchEntryPoint: gm.Get("searchEntryPoint.renderedContent").String(),
		Raw:              []byte(gm.Raw),
	}
	gm.Get("webSearchQueries").ForEach(func(_, q gjson.Result) bool {
		md.WebSearchQueries = append(md.WebSearchQueries, q.String())
		return true
	})
	gm.Get("groundingChunks").ForEach(func(_, c gjson.Result) bool {
		if web := c.Get("web"); web.Exists() {
			md.Sources = append(md.Sources, provider.GroundingSource{
				Title: web.Get("title").String(),
				URI:   web.Get("uri").String(),
			})
		}
		return true
	})
	return md
}
