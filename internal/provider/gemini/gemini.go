// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gemini implements the provider adapter for the Google Gemini REST API:
// generateContent with inline attachments, SSE streaming and native Google
// Search grounding.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/metrics"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/util"
)

// DefaultBaseURL is the public Gemini endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const (
	apiVersion      = "v1beta"
	methodGenerate  = "generateContent"
	methodStream    = "streamGenerateContent"
	listPageSize    = "1000"
	defaultTimeout  = 120 * time.Second
	displayProvider = "Gemini"
)

// Adapter talks to the Gemini API.
type Adapter struct {
	client      *resty.Client
	apiKey      string
	baseURL     string
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

// WithTimeout sets the HTTP timeout of non-streaming calls.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.client.SetTimeout(d) }
}

// New creates a Gemini adapter. A missing API key is logged; the adapter then
// answers every call with a not-configured result.
func New(cfg config.ProviderConfig, attachments provider.AttachmentReader, opts ...Option) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	a := &Adapter{
		client:      resty.New().SetHeader("User-Agent", "switchai-chat/gemini").SetTimeout(defaultTimeout),
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		titleModel:  cfg.TitleModel,
		maxTokens:   cfg.MaxOutputTokens,
		attachments: attachments,
		retry:       provider.ListModelsRetry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.apiKey == "" {
		log.WithField("provider", constant.Gemini).Warn("API key not configured; adapter disabled")
	} else {
		log.WithFields(log.Fields{"provider": constant.Gemini, "api_key": util.HideAPIKey(a.apiKey)}).Debug("adapter configured")
	}
	return a
}

// ID returns the provider identifier.
func (a *Adapter) ID() string { return constant.Gemini }

// HasNativeGrounding reports true: Gemini grounds with the google_search tool.
func (a *Adapter) HasNativeGrounding() bool { return true }

func (a *Adapter) configured() bool { return a.apiKey != "" }

// GenerateResponse runs one generateContent call.
func (a *Adapter) GenerateResponse(ctx context.Context, req *provider.Request) provider.Reply {
	if !a.configured() {
		metrics.ProviderRequests.WithLabelValues(constant.Gemini, "generate", metrics.OutcomeSkipped).Inc()
		return provider.FailedReply(provider.NotConfiguredText)
	}

	reply, err := a.generate(ctx, req)
	metrics.ProviderRequests.WithLabelValues(constant.Gemini, "generate", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithFields(log.Fields{"provider": constant.Gemini, "model": req.Model}).WithError(err).Error("generateContent failed")
		return provider.FailedReply(provider.ErrorText(displayProvider, err))
	}
	return reply
}

func (a *Adapter) generate(ctx context.Context, req *provider.Request) (provider.Reply, error) {
	payload, err := a.buildPayload(ctx, req)
	if err != nil {
		return provider.Reply{}, err
	}
	body, err := a.post(ctx, req.Model, methodGenerate, payload)
	if err != nil {
		return provider.Reply{}, err
	}
	text, md, err := parseResponse(body)
	if err != nil {
		return provider.Reply{}, err
	}
	text = provider.SanitizeOutput(text)
	if md != nil {
		return provider.GroundedReply(text, md), nil
	}
	return provider.PlainReply(text), nil
}

// GenerateConversationTitle asks the title model for a short title.
func (a *Adapter) GenerateConversationTitle(ctx context.Context, firstMessage string) string {
	if !a.configured() || strings.TrimSpace(firstMessage) == "" {
		return constant.FallbackTitle
	}
	req := &provider.Request{
		Model:   a.titleModel,
		Config:  catalog.GenerationConfig{Temperature: catalog.Float(0.3), MaxOutputTokens: catalog.Int(32)},
		History: []provider.Message{{Role: provider.RoleUser, Text: fmt.Sprintf(provider.TitlePrompt, firstMessage)}},
	}
	reply, err := a.generate(ctx, req)
	metrics.ProviderRequests.WithLabelValues(constant.Gemini, "title", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithField("provider", constant.Gemini).WithError(err).Warn("title generation failed")
		return constant.FallbackTitle
	}
	return provider.TitleOrFallback(reply.Text)
}

// ListModels lists models supporting generateContent, retrying per the adapter policy.
func (a *Adapter) ListModels(ctx context.Context) []catalog.Candidate {
	if !a.configured() {
		log.WithField("provider", constant.Gemini).Warn("listModels skipped: API key not configured")
		return []catalog.Candidate{}
	}
	models, err := provider.Retry(ctx, a.retry, "gemini.listModels", a.fetchModels)
	metrics.ProviderRequests.WithLabelValues(constant.Gemini, "list_models", metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithField("provider", constant.Gemini).WithError(err).Error("listModels failed after retries")
		return []catalog.Candidate{}
	}
	return models
}

func (a *Adapter) fetchModels(ctx context.Context) ([]catalog.Candidate, error) {
	var (
		out       []catalog.Candidate
		pageToken string
	)
	for {
		r := a.client.R().
			SetContext(ctx).
			SetQueryParam("key", a.apiKey).
			SetQueryParam("pageSize", listPageSize)
		if pageToken != "" {
			r.SetQueryParam("pageToken", pageToken)
		}
		resp, err := r.Get(a.baseURL + "/" + apiVersion + "/models")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, newStatusErr(resp.StatusCode(), resp.Body())
		}
		body := resp.Body()
		gjson.GetBytes(body, "models").ForEach(func(_, m gjson.Result) bool {
			if c, ok := candidateFromModel(m); ok {
				out = append(out, c)
			}
			return true
		})
		pageToken = gjson.GetBytes(body, "nextPageToken").String()
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

func candidateFromModel(m gjson.Result) (catalog.Candidate, bool) {
	name := strings.TrimPrefix(m.Get("name").String(), "models/")
	if name == "" {
		return catalog.Candidate{}, false
	}
	supported := false
	m.Get("supportedGenerationMethods").ForEach(func(_, v gjson.Result) bool {
		if v.String() == methodGenerate {
			supported = true
			return false
		}
		return true
	})
	if !supported {
		return catalog.Candidate{}, false
	}
	raw, _ := m.Value().(map[string]any)
	return catalog.Candidate{
		Name:          name,
		DisplayName:   m.Get("displayName").String(),
		ContextLength: int(m.Get("inputTokenLimit").Int()),
		Raw:           raw,
	}, true
}

func (a *Adapter) modelURL(model, method string) string {
	model = strings.TrimPrefix(model, "models/")
	return fmt.Sprintf("%s/%s/models/%s:%s", a.baseURL, apiVersion, model, method)
}

func (a *Adapter) post(ctx context.Context, model, method string, payload []byte) ([]byte, error) {
	url := a.modelURL(model, method)
	log.WithField("url", util.MaskURL(url+"?key="+a.apiKey)).Debug("gemini request")
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", a.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newStatusErr(resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

type statusErr struct {
	code int
	msg  string
}

func newStatusErr(code int, body []byte) statusErr {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return statusErr{code: code, msg: msg}
}

func (e statusErr) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("status %d: %s", e.code, e.msg)
	}
	return fmt.Sprintf("status %d", e.code)
}

// StatusCode returns the HTTP status of the failed call.
func (e statusErr) StatusCode() int { return e.code }

var (
	_ provider.Adapter  = (*Adapter)(nil)
	_ provider.Streamer = (*Adapter)(nil)
)
