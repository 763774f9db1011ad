// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conversation stores conversations and their messages.
package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/traylinx/switchAIChat/internal/provider"
)

// ErrNotFound is returned for unknown conversation ids.
var ErrNotFound = errors.New("conversation not found")

// Persona carries a persona-specific system prompt.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"systemPrompt"`
}

// Folder groups conversations and may carry a system prompt.
type Folder struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"systemPrompt"`
}

// Message is a stored conversation message.
type Message struct {
	ID         string                      `json:"id"`
	Role       provider.Role               `json:"role"`
	Text       string                      `json:"text"`
	Attachment *provider.Attachment        `json:"attachment,omitempty"`
	Grounding  *provider.GroundingMetadata `json:"groundingMetadata,omitempty"`
	// Failed marks a bot message whose text is a provider error.
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is one chat thread. FindOne populates Persona and Folder.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Persona   *Persona  `json:"persona,omitempty"`
	Folder    *Folder   `json:"folder,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// History converts the stored messages into provider history, oldest first.
func (c *Conversation) History() []provider.Message {
	out := make([]provider.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		out = append(out, provider.Message{Role: m.Role, Text: m.Text, Attachment: m.Attachment, CreatedAt: m.CreatedAt})
	}
	return out
}

// Store persists conversations.
type Store interface {
	FindOne(ctx context.Context, id string) (*Conversation, error)
	AddUserMessage(ctx context.Context, id, text string, att *provider.Attachment) (*Message, error)
	AddBotMessage(ctx context.Context, id string, reply provider.Reply) (*Message, error)
	SetTitle(ctx context.Context, id, title string) error
}

// MemoryStore is an in-process Store. Conversations are created on first use.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*Conversation), now: time.Now}
}

// Put creates or replaces a conversation.
func (s *MemoryStore) Put(c *Conversation) {
	cp := clone(c)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.mu.Lock()
	s.conversations[cp.ID] = cp
	s.mu.Unlock()
}

// FindOne returns a copy of conversation id.
func (s *MemoryStore) FindOne(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

// AddUserMessage appends a user message, creating the conversation when needed.
func (s *MemoryStore) AddUserMessage(_ context.Context, id, text string, att *provider.Attachment) (*Message, error) {
	return s.append(id, Message{Role: provider.RoleUser, Text: text, Attachment: att}, true)
}

// AddBotMessage appends the assistant reply.
func (s *MemoryStore) AddBotMessage(_ context.Context, id string, reply provider.Reply) (*Message, error) {
	return s.append(id, Message{Role: provider.RoleAssistant, Text: reply.Text, Grounding: reply.Grounding, Failed: reply.Failed}, false)
}

// SetTitle renames a conversation.
func (s *MemoryStore) SetTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.Title = title
	c.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) append(id string, m Message, create bool) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		if !create {
			return nil, ErrNotFound
		}
		c = &Conversation{ID: id, CreatedAt: s.now()}
		s.conversations[id] = c
	}
	m.ID = uuid.NewString()
	m.CreatedAt = s.now()
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = m.CreatedAt
	out := m
	return &out, nil
}

func clone(c *Conversation) *Conversation {
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	if c.Persona != nil {
		p := *c.Persona
		cp.Persona = &p
	}
	if c.Folder != nil {
		f := *c.Folder
		cp.Folder = &f
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
