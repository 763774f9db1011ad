// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package claude implements the provider adapter for the Anthropic messages API.
package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/metrics"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/util"
)

// DefaultBaseURL is the public Anthropic endpoint.
const DefaultBaseURL = "https://api.anthropic.com/"

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 4096
	listPageLimit    = 100
	displayProvider  = "Claude"
)

// Adapter talks to the Anthropic messages API.
type Adapter struct {
	client      *anthropic.Client
	apiKey      string
	titleModel  string
	maxTokens   int
	attachments provider.AttachmentReader
	retry       provider.RetryPolicy
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithRetryPolicy overrides the listModels retry policy.
func WithRetryPolicy(p provider.RetryPolicy) Option {
	return func(a *Adapter) { a.retry = p }
}

// New creates a Claude adapter. A missing API key is logged; the adapter then
// answers every call with a not-configured result.
func New(cfg config.ProviderConfig, attachments provider.AttachmentReader, opts ...Option) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	// Retries are owned by provider.RetryPolicy, not the SDK.
	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(defaultTimeout),
	)
	a := &Adapter{
		client:      &client,
		apiKey:      cfg.APIKey,
		titleModel:  cfg.TitleModel,
		maxTokens:   cfg.MaxOutputTokens,
		attachments: attachments,
		retry:       provider.ListModelsRetry(),
	}
	if a.maxTokens <= 0 {
		a.maxTokens = defaultMaxTokens
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.apiKey == "" {
		log.WithField("provider", constant.Claude).Warn("API key not configured; adapter disabled")
	} else {
		log.WithFields(log.Fields{"provider": constant.Claude, "api_key": util.HideAPIKey(a.apiKey)}).Debug("adapter configured")
	}
	return a
}

// ID returns the provider identifier.
func (a *Adapter) ID() string { return constant.Claude }

// HasNativeGrounding reports false; search context is injected by the caller.
func (a *Adapter) HasNativeGrounding() bool { return false }

func (a *Adapter) configured() bool { return a.apiKey != "" }

// GenerateResponse runs one messages call.
func (a *Adapter) GenerateResponse(ctx context.Context, req *provider.Request) provider.Reply {
	if !a.configured() {
		metrics.ProviderRequests.WithLabelValues(constant.Claude, "generate", metrics.OutcomeSkipped).Inc()
		return provider.FailedReply(provider.NotConfiguredText)
	}
	text, err := a.generate(ctx, req)
	metrics.ProviderRequests.WithLabelValues(constant.Claude, "generate", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithFields(log.Fields{"provider": constant.Claude, "model": req.Model}).WithError(err).Error("messages call failed")
		return provider.FailedReply(provider.ErrorText(displayProvider, err))
	}
	return provider.PlainReply(provider.SanitizeOutput(text))
}

func (a *Adapter) generate(ctx context.Context, req *provider.Request) (string, error) {
	messages := a.buildMessages(ctx, req.History)
	if len(messages) == 0 {
		return "", errors.New("request has no content")
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(a.maxTokens),
	}
	if system := provider.SystemPromptWithSearch(req.SystemPrompt, req.SearchResults); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	applyConfig(&params, req.Config)

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", describeErr(err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// buildMessages converts history into alternating user/assistant turns.
// Consecutive messages of the same role are merged into one turn.
func (a *Adapter) buildMessages(ctx context.Context, history []provider.Message) []anthropic.MessageParam {
	var (
		out     []anthropic.MessageParam
		blocks  []anthropic.ContentBlockParamUnion
		current provider.Role
	)
	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if current == provider.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}
	for _, m := range history {
		role := m.Role
		if role != provider.RoleAssistant {
			role = provider.RoleUser
		}
		if role != current {
			flush()
			current = role
		}
		if role == provider.RoleUser && m.Attachment != nil {
			if block, ok := a.imageBlock(ctx, m.Attachment); ok {
				blocks = append(blocks, block)
			}
		}
		if m.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Text))
		}
	}
	flush()
	// The API requires the transcript to open with a user turn.
	for len(out) > 0 && out[0].Role == anthropic.MessageParamRoleAssistant {
		out = out[1:]
	}
	return out
}

func (a *Adapter) imageBlock(ctx context.Context, att *provider.Attachment) (anthropic.ContentBlockParamUnion, bool) {
	data, mimeType, err := provider.LoadAttachment(ctx, a.attachments, att)
	if err != nil {
		log.WithField("provider", constant.Claude).WithError(err).Warn("attachment skipped")
		return anthropic.ContentBlockParamUnion{}, false
	}
	if !strings.HasPrefix(mimeType, "image/") {
		log.WithFields(log.Fields{"provider": constant.Claude, "mime_type": mimeType}).Warn("non-image attachment skipped")
		return anthropic.ContentBlockParamUnion{}, false
	}
	return anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)), true
}

func applyConfig(params *anthropic.MessageNewParams, cfg catalog.GenerationConfig) {
	if cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		params.TopP = anthropic.Float(*cfg.TopP)
	}
	if cfg.TopK != nil {
		params.TopK = anthropic.Int(int64(*cfg.TopK))
	}
	if cfg.MaxOutputTokens != nil && *cfg.MaxOutputTokens > 0 {
		params.MaxTokens = int64(*cfg.MaxOutputTokens)
	}
}

// GenerateConversationTitle asks the title model for a short title.
func (a *Adapter) GenerateConversationTitle(ctx context.Context, firstMessage string) string {
	if !a.configured() || strings.TrimSpace(firstMessage) == "" {
		return constant.FallbackTitle
	}
	text, err := a.generate(ctx, &provider.Request{
		Model:   a.titleModel,
		Config:  catalog.GenerationConfig{Temperature: catalog.Float(0.3), MaxOutputTokens: catalog.Int(32)},
		History: []provider.Message{{Role: provider.RoleUser, Text: fmt.Sprintf(provider.TitlePrompt, firstMessage)}},
	})
	metrics.ProviderRequests.WithLabelValues(constant.Claude, "title", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithField("provider", constant.Claude).WithError(err).Warn("title generation failed")
		return constant.FallbackTitle
	}
	return provider.TitleOrFallback(text)
}

// ListModels lists Claude models, retrying per the adapter policy.
func (a *Adapter) ListModels(ctx context.Context) []catalog.Candidate {
	if !a.configured() {
		log.WithField("provider", constant.Claude).Warn("listModels skipped: API key not configured")
		return []catalog.Candidate{}
	}
	models, err := provider.Retry(ctx, a.retry, "claude.listModels", a.fetchModels)
	metrics.ProviderRequests.WithLabelValues(constant.Claude, "list_models", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithField("provider", constant.Claude).WithError(err).Error("listModels failed after retries")
		return []catalog.Candidate{}
	}
	return models
}

func (a *Adapter) fetchModels(ctx context.Context) ([]catalog.Candidate, error) {
	var out []catalog.Candidate
	iter := a.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{Limit: anthropic.Int(listPageLimit)})
	for iter.Next() {
		m := iter.Current()
		if m.ID == "" {
			continue
		}
		raw := map[string]any{}
		if !m.CreatedAt.IsZero() {
			raw["created_at"] = m.CreatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, catalog.Candidate{Name: m.ID, DisplayName: m.DisplayName, Raw: raw})
	}
	if err := iter.Err(); err != nil {
		return nil, describeErr(err)
	}
	return out, nil
}

func describeErr(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %v", apiErr.StatusCode, apiErr)
	}
	return err
}

var _ provider.Adapter = (*Adapter)(nil)
