// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package openai implements the provider adapter for OpenAI-compatible chat
// completion APIs, including multimodal content and the tool-call round-trip.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	gopenai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/metrics"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/util"
)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

const (
	defaultTimeout  = 120 * time.Second
	displayProvider = "OpenAI"
	toolChoiceAuto  = "auto"
	toolChoiceNone  = "none"
)

// Adapter talks to an OpenAI-compatible chat completions API.
type Adapter struct {
	client      *gopenai.Client
	apiKey      string
	titleModel  string
	maxTokens   int
	attachments provider.AttachmentReader
	tools       provider.ToolExecutor
	retry       provider.RetryPolicy
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithRetryPolicy overrides the listModels retry policy.
func WithRetryPolicy(p provider.RetryPolicy) Option {
	return func(a *Adapter) { a.retry = p }
}

// WithTools enables the tool-call round-trip.
func WithTools(exec provider.ToolExecutor) Option {
	return func(a *Adapter) { a.tools = exec }
}

// New creates an OpenAI adapter. A missing API key is logged; the adapter then
// answers every call with a not-configured result.
func New(cfg config.ProviderConfig, attachments provider.AttachmentReader, opts ...Option) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: defaultTimeout}

	a := &Adapter{
		client:      gopenai.NewClientWithConfig(clientCfg),
		apiKey:      cfg.APIKey,
		titleModel:  cfg.TitleModel,
		maxTokens:   cfg.MaxOutputTokens,
		attachments: attachments,
		retry:       provider.ListModelsRetry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.apiKey == "" {
		log.WithField("provider", constant.OpenAI).Warn("API key not configured; adapter disabled")
	} else {
		log.WithFields(log.Fields{"provider": constant.OpenAI, "api_key": util.HideAPIKey(a.apiKey), "base_url": clientCfg.BaseURL}).Debug("adapter configured")
	}
	return a
}

// ID returns the provider identifier.
func (a *Adapter) ID() string { return constant.OpenAI }

// HasNativeGrounding reports false; search context is injected by the caller.
func (a *Adapter) HasNativeGrounding() bool { return false }

func (a *Adapter) configured() bool { return a.apiKey != "" }

// GenerateResponse runs a chat completion, looping once through tool calls
// when the model requests them.
func (a *Adapter) GenerateResponse(ctx context.Context, req *provider.Request) provider.Reply {
	if !a.configured() {
		metrics.ProviderRequests.WithLabelValues(constant.OpenAI, "generate", metrics.OutcomeSkipped).Inc()
		return provider.FailedReply(provider.NotConfiguredText)
	}
	text, err := a.generate(ctx, req)
	metrics.ProviderRequests.WithLabelValues(constant.OpenAI, "generate", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithFields(log.Fields{"provider": constant.OpenAI, "model": req.Model}).WithError(err).Error("chat completion failed")
		return provider.FailedReply(provider.ErrorText(displayProvider, err))
	}
	return provider.PlainReply(provider.SanitizeOutput(text))
}

func (a *Adapter) generate(ctx context.Context, req *provider.Request) (string, error) {
	messages, err := a.buildMessages(ctx, req)
	if err != nil {
		return "", err
	}
	creq := gopenai.ChatCompletionRequest{Model: req.Model, Messages: messages}
	applyConfig(&creq, req.Config, a.maxTokens)
	if req.AllowTools && a.tools != nil {
		creq.Tools = toolSchemas(a.tools.Definitions())
		if len(creq.Tools) > 0 {
			creq.ToolChoice = toolChoiceAuto
		}
	}

	msg, err := a.complete(ctx, creq)
	if err != nil {
		return "", err
	}
	if len(msg.ToolCalls) == 0 || len(creq.Tools) == 0 {
		return msg.Content, nil
	}

	creq.Messages = append(creq.Messages, a.runTools(ctx, req.ConversationID, msg)...)
	// The follow-up must answer in text.
	creq.ToolChoice = toolChoiceNone
	final, err := a.complete(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("tool follow-up: %w", err)
	}
	return final.Content, nil
}

// runTools returns the assistant tool-call message followed by one tool result
// message per call.
func (a *Adapter) runTools(ctx context.Context, conversationID string, msg gopenai.ChatCompletionMessage) []gopenai.ChatCompletionMessage {
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
		if msg.ToolCalls[i].Type == "" {
			msg.ToolCalls[i].Type = gopenai.ToolTypeFunction
		}
	}
	out := make([]gopenai.ChatCompletionMessage, 0, len(msg.ToolCalls)+1)
	out = append(out, msg)
	for _, call := range msg.ToolCalls {
		log.WithFields(log.Fields{"provider": constant.OpenAI, "tool": call.Function.Name, "conversation_id": conversationID}).Info("executing tool call")
		result := a.tools.Execute(ctx, conversationID, call.Function.Name, call.Function.Arguments)
		out = append(out, gopenai.ChatCompletionMessage{
			Role:       gopenai.ChatMessageRoleTool,
			Content:    result,
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		})
	}
	return out
}

func (a *Adapter) complete(ctx context.Context, creq gopenai.ChatCompletionRequest) (gopenai.ChatCompletionMessage, error) {
	resp, err := a.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return gopenai.ChatCompletionMessage{}, describeErr(err)
	}
	if len(resp.Choices) == 0 {
		return gopenai.ChatCompletionMessage{}, errors.New("response has no choices")
	}
	return resp.Choices[0].Message, nil
}

func (a *Adapter) buildMessages(ctx context.Context, req *provider.Request) ([]gopenai.ChatCompletionMessage, error) {
	messages := make([]gopenai.ChatCompletionMessage, 0, len(req.History)+1)
	if system := provider.SystemPromptWithSearch(req.SystemPrompt, req.SearchResults); system != "" {
		messages = append(messages, gopenai.ChatCompletionMessage{Role: gopenai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range req.History {
		if m.Role == provider.RoleAssistant {
			if m.Text != "" {
				messages = append(messages, gopenai.ChatCompletionMessage{Role: gopenai.ChatMessageRoleAssistant, Content: m.Text})
			}
			continue
		}
		msg := gopenai.ChatCompletionMessage{Role: gopenai.ChatMessageRoleUser}
		if part, ok := a.imagePart(ctx, m.Attachment); ok {
			msg.MultiContent = []gopenai.ChatMessagePart{{Type: gopenai.ChatMessagePartTypeText, Text: m.Text}, part}
		} else if m.Text != "" {
			msg.Content = m.Text
		} else {
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return nil, errors.New("request has no content")
	}
	return messages, nil
}

func (a *Adapter) imagePart(ctx context.Context, att *provider.Attachment) (gopenai.ChatMessagePart, bool) {
	if att == nil {
		return gopenai.ChatMessagePart{}, false
	}
	data, mimeType, err := provider.LoadAttachment(ctx, a.attachments, att)
	if err != nil {
		log.WithField("provider", constant.OpenAI).WithError(err).Warn("attachment skipped")
		return gopenai.ChatMessagePart{}, false
	}
	if !strings.HasPrefix(mimeType, "image/") {
		log.WithFields(log.Fields{"provider": constant.OpenAI, "mime_type": mimeType}).Warn("non-image attachment skipped")
		return gopenai.ChatMessagePart{}, false
	}
	return gopenai.ChatMessagePart{
		Type: gopenai.ChatMessagePartTypeImageURL,
		ImageURL: &gopenai.ChatMessageImageURL{
			URL:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			Detail: gopenai.ImageURLDetailAuto,
		},
	}, true
}

// reasoningPrefixes name model families that reject sampling parameters and
// take max_completion_tokens instead of max_tokens.
var reasoningPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

func isReasoningModel(model string) bool {
	model = strings.ToLower(model)
	for _, p := range reasoningPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// applyConfig maps the generation config onto creq. TopK has no equivalent.
func applyConfig(creq *gopenai.ChatCompletionRequest, cfg catalog.GenerationConfig, fallbackMax int) {
	maxTokens := fallbackMax
	if cfg.MaxOutputTokens != nil {
		maxTokens = *cfg.MaxOutputTokens
	}
	if isReasoningModel(creq.Model) {
		if maxTokens > 0 {
			creq.MaxCompletionTokens = maxTokens
		}
		return
	}
	if cfg.Temperature != nil {
		creq.Temperature = float32(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		creq.TopP = float32(*cfg.TopP)
	}
	if maxTokens > 0 {
		creq.MaxTokens = maxTokens
	}
}

func toolSchemas(defs []provider.ToolDefinition) []gopenai.Tool {
	tools := make([]gopenai.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, gopenai.Tool{
			Type: gopenai.ToolTypeFunction,
			Function: &gopenai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools
}

// GenerateConversationTitle asks the title model for a short title.
func (a *Adapter) GenerateConversationTitle(ctx context.Context, firstMessage string) string {
	if !a.configured() || strings.TrimSpace(firstMessage) == "" {
		return constant.FallbackTitle
	}
	creq := gopenai.ChatCompletionRequest{
		Model: a.titleModel,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleUser, Content: fmt.Sprintf(provider.TitlePrompt, firstMessage)},
		},
	}
	applyConfig(&creq, catalog.GenerationConfig{Temperature: catalog.Float(0.3), MaxOutputTokens: catalog.Int(32)}, 0)
	msg, err := a.complete(ctx, creq)
	metrics.ProviderRequests.WithLabelValues(constant.OpenAI, "title", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithField("provider", constant.OpenAI).WithError(err).Warn("title generation failed")
		return constant.FallbackTitle
	}
	return provider.TitleOrFallback(msg.Content)
}

// ListModels lists chat-capable models, retrying per the adapter policy.
func (a *Adapter) ListModels(ctx context.Context) []catalog.Candidate {
	if !a.configured() {
		log.WithField("provider", constant.OpenAI).Warn("listModels skipped: API key not configured")
		return []catalog.Candidate{}
	}
	models, err := provider.Retry(ctx, a.retry, "openai.listModels", a.fetchModels)
	metrics.ProviderRequests.WithLabelValues(constant.OpenAI, "list_models", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithField("provider", constant.OpenAI).WithError(err).Error("listModels failed after retries")
		return []catalog.Candidate{}
	}
	return models
}

func (a *Adapter) fetchModels(ctx context.Context) ([]catalog.Candidate, error) {
	list, err := a.client.ListModels(ctx)
	if err != nil {
		return nil, describeErr(err)
	}
	out := make([]catalog.Candidate, 0, len(list.Models))
	for _, m := range list.Models {
		if m.ID == "" || !catalog.InferCapabilities(constant.OpenAI, m.ID, nil).TextInput {
			continue
		}
		out = append(out, catalog.Candidate{
			Name: m.ID,
			Raw:  map[string]any{"owned_by": m.OwnedBy},
		})
	}
	return out, nil
}

func describeErr(err error) error {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err
}

var _ provider.Adapter = (*Adapter)(nil)
