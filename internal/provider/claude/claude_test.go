// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package claude

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/provider"
)

type memAttachments map[string][]byte

func (m memAttachments) Read(_ context.Context, ref string) ([]byte, error) {
	if b, ok := m[ref]; ok {
		return b, nil
	}
	return nil, errors.New("missing")
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.ProviderConfig{APIKey: "ak-test", BaseURL: srv.URL, TitleModel: "claude-3-5-haiku-latest"},
		memAttachments{"chart.webp": []byte("WEBP")},
		WithRetryPolicy(provider.RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second, Sleep: func(context.Context, time.Duration) error { return nil }}))
}

func message(text string) string {
	return fmt.Sprintf(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",
		"content":[{"type":"text","text":%q}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`, text)
}

func TestGenerateResponse_Payload(t *testing.T) {
	var body []byte
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, message("[14/10/2026 09:00] Assistant: Revenue doubled."))
	})

	reply := a.GenerateResponse(context.Background(), &provider.Request{
		Model:        "claude-sonnet-4-20250514",
		Config:       catalog.GenerationConfig{Temperature: catalog.Float(0.2), TopK: catalog.Int(10), MaxOutputTokens: catalog.Int(1024)},
		SystemPrompt: "Be concise.",
		History: []provider.Message{
			{Role: provider.RoleAssistant, Text: "Welcome!"},
			{Role: provider.RoleUser, Text: "first"},
			{Role: provider.RoleUser, Text: "explain this chart", Attachment: &provider.Attachment{Kind: provider.AttachmentImage, Ref: "chart.webp"}},
		},
	})

	require.False(t, reply.Failed, reply.Text)
	assert.Equal(t, "Revenue doubled.", reply.Text)

	assert.Equal(t, "Be concise.", gjson.GetBytes(body, "system.0.text").String())
	assert.Equal(t, int64(1024), gjson.GetBytes(body, "max_tokens").Int())
	assert.Equal(t, int64(10), gjson.GetBytes(body, "top_k").Int())
	msgs := gjson.GetBytes(body, "messages").Array()
	require.Len(t, msgs, 1, "leading assistant turn dropped and user turns merged")
	assert.Equal(t, "user", msgs[0].Get("role").String())
	assert.Equal(t, "first", msgs[0].Get("content.0.text").String())
	assert.Equal(t, "image", msgs[0].Get("content.1.type").String())
	assert.Equal(t, "image/webp", msgs[0].Get("content.1.source.media_type").String())
	assert.Equal(t, "explain this chart", msgs[0].Get("content.2.text").String())
}

func TestGenerateResponse_ErrorBecomesText(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})
	reply := a.GenerateResponse(context.Background(), &provider.Request{
		Model:   "claude-sonnet-4-20250514",
		History: []provider.Message{{Role: provider.RoleUser, Text: "hi"}},
	})
	assert.True(t, reply.Failed)
	assert.Contains(t, reply.Text, "503")
}

func TestUnconfiguredAdapter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	a := New(config.ProviderConfig{BaseURL: srv.URL}, nil)

	assert.Equal(t, provider.NotConfiguredText, a.GenerateResponse(context.Background(), &provider.Request{
		Model: "m", History: []provider.Message{{Role: provider.RoleUser, Text: "hi"}},
	}).Text)
	assert.Empty(t, a.ListModels(context.Background()))
	assert.Equal(t, constant.FallbackTitle, a.GenerateConversationTitle(context.Background(), "hi"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestListModels(t *testing.T) {
	var calls int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"type":"model","id":"claude-sonnet-4-20250514","display_name":"Claude Sonnet 4","created_at":"2025-05-14T00:00:00Z"},
			{"type":"model","id":"claude-3-5-haiku-20241022","display_name":"Claude Haiku 3.5","created_at":"2024-10-22T00:00:00Z"}
		],"has_more":false,"first_id":"claude-sonnet-4-20250514","last_id":"claude-3-5-haiku-20241022"}`)
	})

	models := a.ListModels(context.Background())
	require.Len(t, models, 2)
	assert.Equal(t, "claude-sonnet-4-20250514", models[0].Name)
	assert.Equal(t, "Claude Sonnet 4", models[0].DisplayName)
	assert.Equal(t, "2025-05-14T00:00:00Z", models[0].Raw["created_at"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerateConversationTitle(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "claude-3-5-haiku-latest", gjson.GetBytes(b, "model").String())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, message("Sure! \"budget review.\""))
	})
	assert.Equal(t, "Budget review", a.GenerateConversationTitle(context.Background(), "review my budget"))
}
