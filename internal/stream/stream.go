// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream relays a provider token stream to one subscriber and
// persists the generated text when the stream ends.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/conversation"
	"github.com/traylinx/switchAIChat/internal/logging"
	"github.com/traylinx/switchAIChat/internal/metrics"
	"github.com/traylinx/switchAIChat/internal/orchestrator"
	"github.com/traylinx/switchAIChat/internal/provider"
)

// EventKind tags subscriber events.
type EventKind string

const (
	EventData     EventKind = "data"
	EventError    EventKind = "error"
	EventComplete EventKind = "complete"
)

// Termination reasons.
const (
	ReasonComplete   = "complete"
	ReasonError      = "error"
	ReasonTimeout    = "timeout"
	ReasonDisconnect = "disconnect"
)

// ErrTimeout is reported when the stream exceeds its wall-clock cap.
var ErrTimeout = errors.New("stream timed out")

// Event is one item delivered to the subscriber.
type Event struct {
	Kind   EventKind `json:"type"`
	Text   string    `json:"text,omitempty"`
	Error  string    `json:"error,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Preparer builds provider requests and titles conversations.
type Preparer interface {
	Prepare(ctx context.Context, in orchestrator.Input) (*orchestrator.Prepared, error)
	EnsureTitle(ctx context.Context, p *orchestrator.Prepared) string
}

// Service opens streams.
type Service struct {
	conversations conversation.Store
	preparer      Preparer
	timeout       func() time.Duration
	terminalGrace time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the wall-clock cap. timeout is read when each stream opens.
func WithTimeout(timeout func() time.Duration) Option {
	return func(s *Service) { s.timeout = timeout }
}

// New creates a Service with the default 60 second cap.
func New(conversations conversation.Store, preparer Preparer, opts ...Option) *Service {
	s := &Service{
		conversations: conversations,
		preparer:      preparer,
		timeout:       func() time.Duration { return constant.StreamTimeout },
		terminalGrace: constant.StreamTerminalGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open stores the user turn and starts streaming the reply. It returns without
// waiting for the provider. Cancelling ctx or calling Close on the stream
// counts as a client disconnect.
func (s *Service) Open(ctx context.Context, in orchestrator.Input) (*Stream, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, orchestrator.ErrEmptyMessage
	}
	if _, err := s.conversations.AddUserMessage(ctx, in.ConversationID, in.Content, in.Attachment); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	p, err := s.preparer.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	providerCtx, stopProvider := context.WithCancel(runCtx)
	st := &Stream{
		svc:          s,
		prepared:     p,
		events:       make(chan Event, 16),
		ctx:          runCtx,
		cancel:       cancel,
		stopProvider: stopProvider,
		expired:      make(chan struct{}),
		done:         make(chan struct{}),
		logger: logging.FromContext(ctx).WithFields(log.Fields{
			"conversation_id": in.ConversationID,
			"provider":        p.Adapter.ID(),
			"model":           p.Entry.Name,
		}),
	}
	// Persistence must outlive the request context.
	st.persistCtx = context.WithoutCancel(ctx)

	// The cap covers the provider handshake as well as the token stream.
	st.deadline = time.AfterFunc(s.timeout(), func() { close(st.expired) })
	opened := make(chan openResult, 1)
	go func() {
		chunks, err := openChunks(providerCtx, p.Adapter, p.Request)
		opened <- openResult{chunks: chunks, err: err}
	}()
	go st.run(opened)
	return st, nil
}

type openResult struct {
	chunks <-chan provider.Chunk
	err    error
}

// Stream is one open streaming session.
type Stream struct {
	svc          *Service
	prepared     *orchestrator.Prepared
	events       chan Event
	ctx          context.Context
	cancel       context.CancelFunc
	stopProvider context.CancelFunc
	persistCtx   context.Context
	logger       *log.Entry

	deadline *time.Timer
	expired  chan struct{}

	once   sync.Once
	done   chan struct{}
	text   strings.Builder
	reason string
}

// Events returns the subscriber channel. It is closed after the terminal event,
// or without one on disconnect.
func (st *Stream) Events() <-chan Event { return st.events }

// Done is closed once the stream has terminated.
func (st *Stream) Done() <-chan struct{} { return st.done }

// Reason returns the termination reason after Done is closed.
func (st *Stream) Reason() string {
	<-st.done
	return st.reason
}

// Close disconnects the subscriber. It is safe to call more than once.
func (st *Stream) Close() {
	st.cancel()
}

func (st *Stream) run(opened <-chan openResult) {
	defer st.deadline.Stop()
	ctx := st.ctx

	var chunks <-chan provider.Chunk
	select {
	case <-ctx.Done():
		st.terminate(ReasonDisconnect, nil)
		return
	case <-st.expired:
		st.expire()
		return
	case res := <-opened:
		if res.err != nil {
			st.terminate(ReasonError, openError(res.err))
			return
		}
		chunks = res.chunks
	}

	for {
		select {
		case <-ctx.Done():
			st.terminate(ReasonDisconnect, nil)
			return
		case <-st.expired:
			st.expire()
			return
		case chunk, ok := <-chunks:
			if ctx.Err() != nil {
				st.terminate(ReasonDisconnect, nil)
				return
			}
			if !ok {
				st.terminate(ReasonComplete, nil)
				return
			}
			if chunk.Kind == provider.ChunkError {
				err := chunk.Err
				if err == nil {
					err = errors.New("provider stream failed")
				}
				st.terminate(ReasonError, err)
				return
			}
			if chunk.Text == "" {
				continue
			}
			st.text.WriteString(chunk.Text)
			select {
			case st.events <- Event{Kind: EventData, Text: chunk.Text}:
			case <-ctx.Done():
				st.terminate(ReasonDisconnect, nil)
				return
			case <-st.expired:
				st.expire()
				return
			}
		}
	}
}

func (st *Stream) expire() {
	if st.ctx.Err() != nil {
		st.terminate(ReasonDisconnect, nil)
		return
	}
	st.terminate(ReasonTimeout, ErrTimeout)
}

// openError turns a failed provider handshake into the subscriber error.
func openError(err error) error {
	if errors.Is(err, provider.ErrNotConfigured) {
		return errors.New(provider.NotConfiguredText)
	}
	return err
}

// terminate is only called from the run goroutine and takes effect once.
func (st *Stream) terminate(reason string, err error) {
	st.once.Do(func() {
		st.reason = reason
		st.stopProvider()
		metrics.StreamTerminations.WithLabelValues(reason).Inc()

		switch reason {
		case ReasonDisconnect:
			st.logger.Debug("stream subscriber disconnected")
		case ReasonComplete:
			st.persist()
			st.emit(Event{Kind: EventComplete, Reason: reason})
		default:
			st.persist()
			st.logger.WithError(err).WithField("reason", reason).Warn("stream terminated with error")
			st.emit(Event{Kind: EventError, Error: err.Error(), Reason: reason})
		}
		close(st.events)
		if reason == ReasonComplete && st.text.Len() > 0 {
			st.svc.preparer.EnsureTitle(st.persistCtx, st.prepared)
		}
		st.cancel()
		close(st.done)
	})
}

func (st *Stream) persist() {
	text := st.text.String()
	if text == "" {
		return
	}
	if _, err := st.svc.conversations.AddBotMessage(st.persistCtx, st.prepared.Conversation.ID, provider.PlainReply(text)); err != nil {
		st.logger.WithError(err).Error("failed to persist streamed reply")
	}
}

// emit delivers the terminal event unless the subscriber disconnects or stays
// idle for longer than the delivery grace.
func (st *Stream) emit(ev Event) {
	grace := time.NewTimer(st.svc.terminalGrace)
	defer grace.Stop()
	select {
	case st.events <- ev:
	case <-st.ctx.Done():
		st.logger.WithField("event", ev.Kind).Debug("subscriber gone before terminal event")
	case <-grace.C:
		st.logger.WithField("event", ev.Kind).Warn("subscriber idle, terminal event dropped")
	}
}
