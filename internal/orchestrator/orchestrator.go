// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package orchestrator produces assistant replies: it resolves the adapter,
// assembles the system prompt and history, injects web search results for
// adapters without native grounding, and persists the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/conversation"
	"github.com/traylinx/switchAIChat/internal/logging"
	"github.com/traylinx/switchAIChat/internal/provider"
	"github.com/traylinx/switchAIChat/internal/registry"
	"github.com/traylinx/switchAIChat/internal/router"
	"github.com/traylinx/switchAIChat/internal/search"
)

var (
	// ErrServiceUnavailable is returned when no model can serve the request.
	ErrServiceUnavailable = errors.New("service unavailable: no active model")
	// ErrEmptyMessage is returned for a turn without text or attachment.
	ErrEmptyMessage = errors.New("message has no content")
)

// Resolver chooses the adapter of a request.
type Resolver interface {
	Resolve(ctx context.Context, model *catalog.Entry) (router.Resolution, error)
}

// PromptSource supplies the global system prompt.
type PromptSource interface {
	SystemPrompt() string
}

// Input is one user turn.
type Input struct {
	ConversationID string
	Content        string
	Attachment     *provider.Attachment
	UseWebSearch   bool
	// ModelID optionally names a catalog entry to use instead of the active model.
	ModelID string
	// Config overrides the generation config of ModelID's entry.
	Config *catalog.GenerationConfig
}

// Prepared is a request ready to be sent to its adapter.
type Prepared struct {
	Adapter      provider.Adapter
	Entry        *catalog.Entry
	Request      *provider.Request
	Conversation *conversation.Conversation
}

// Result is the outcome of SendMessage.
type Result struct {
	Reply   provider.Reply
	Message *conversation.Message
	Model   *catalog.Entry
	// Title is set when this turn generated the conversation title.
	Title string
}

// Service runs the response pipeline.
type Service struct {
	conversations conversation.Store
	catalog       catalog.Store
	resolver      Resolver
	searcher      search.Searcher
	prompts       PromptSource
}

// New creates a Service. searcher may be nil to disable the search fallback.
func New(conversations conversation.Store, store catalog.Store, resolver Resolver, searcher search.Searcher, prompts PromptSource) *Service {
	return &Service{
		conversations: conversations,
		catalog:       store,
		resolver:      resolver,
		searcher:      searcher,
		prompts:       prompts,
	}
}

// SendMessage stores the user turn, generates the reply and stores it. Adapter
// failures are persisted as the reply text rather than returned.
func (s *Service) SendMessage(ctx context.Context, in Input) (*Result, error) {
	if strings.TrimSpace(in.Content) == "" && in.Attachment == nil {
		return nil, ErrEmptyMessage
	}
	if _, err := s.conversations.AddUserMessage(ctx, in.ConversationID, in.Content, in.Attachment); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	p, err := s.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).WithFields(log.Fields{
		"conversation_id": in.ConversationID,
		"provider":        p.Adapter.ID(),
		"model":           p.Entry.Name,
	})

	reply := p.Adapter.GenerateResponse(ctx, p.Request)
	if reply.Failed {
		logger.Warn("provider returned an error reply")
	}
	msg, err := s.conversations.AddBotMessage(ctx, in.ConversationID, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to store reply: %w", err)
	}

	res := &Result{Reply: reply, Message: msg, Model: p.Entry}
	if !reply.Failed {
		res.Title = s.EnsureTitle(ctx, p)
	}
	return res, nil
}

// Prepare resolves the adapter and builds the provider request for the current
// state of the conversation. The user turn must already be stored.
func (s *Service) Prepare(ctx context.Context, in Input) (*Prepared, error) {
	conv, err := s.conversations.FindOne(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}

	res, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	req := &provider.Request{
		Model:          res.Entry.Name,
		Config:         res.Config,
		History:        conv.History(),
		SystemPrompt:   SystemPrompt(conv, s.globalPrompt()),
		UseWebSearch:   in.UseWebSearch,
		AllowTools:     res.Entry.Capabilities.ToolUse,
		ConversationID: conv.ID,
	}
	if in.UseWebSearch && !res.Adapter.HasNativeGrounding() {
		req.SearchResults = s.searchContext(ctx, req.History)
	}
	return &Prepared{Adapter: res.Adapter, Entry: res.Entry, Request: req, Conversation: conv}, nil
}

func (s *Service) resolve(ctx context.Context, in Input) (router.Resolution, error) {
	var model *catalog.Entry
	if in.ModelID != "" {
		entry, err := s.catalog.Get(ctx, in.ModelID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return router.Resolution{}, fmt.Errorf("%w: %s", registry.ErrModelNotFound, in.ModelID)
			}
			return router.Resolution{}, err
		}
		model = entry
	}

	res, err := s.resolver.Resolve(ctx, model)
	if err != nil {
		return router.Resolution{}, err
	}
	if res.Entry == nil {
		return router.Resolution{}, ErrServiceUnavailable
	}
	if model != nil && in.Config != nil {
		res.Config = in.Config.Clone()
	}
	return res, nil
}

func (s *Service) globalPrompt() string {
	if s.prompts == nil {
		return ""
	}
	return s.prompts.SystemPrompt()
}

// SystemPrompt picks the persona prompt, else the folder prompt, else global.
func SystemPrompt(conv *conversation.Conversation, global string) string {
	if conv.Persona != nil && strings.TrimSpace(conv.Persona.SystemPrompt) != "" {
		return conv.Persona.SystemPrompt
	}
	if conv.Folder != nil && strings.TrimSpace(conv.Folder.SystemPrompt) != "" {
		return conv.Folder.SystemPrompt
	}
	return global
}

// searchContext looks up the latest user message. Failures are logged and
// yield no context.
func (s *Service) searchContext(ctx context.Context, history []provider.Message) string {
	if s.searcher == nil {
		return ""
	}
	query := LastUserText(history)
	if query == "" {
		return ""
	}
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("web search failed; continuing without search context")
		return ""
	}
	return search.FormatResults(query, results)
}

// LastUserText returns the text of the most recent user message.
func LastUserText(history []provider.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == provider.RoleUser && strings.TrimSpace(history[i].Text) != "" {
			return strings.TrimSpace(history[i].Text)
		}
	}
	return ""
}

// EnsureTitle generates and stores a title for an untitled conversation. It
// returns the stored title, or "" when nothing was done.
func (s *Service) EnsureTitle(ctx context.Context, p *Prepared) string {
	if p.Conversation == nil || p.Conversation.Title != "" {
		return ""
	}
	first := ""
	for _, m := range p.Request.History {
		if m.Role == provider.RoleUser && strings.TrimSpace(m.Text) != "" {
			first = m.Text
			break
		}
	}
	if first == "" {
		return ""
	}
	title := p.Adapter.GenerateConversationTitle(ctx, first)
	if err := s.conversations.SetTitle(ctx, p.Conversation.ID, title); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("failed to store conversation title")
		return ""
	}
	p.Conversation.Title = title
	return title
}
