// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tools implements the server-side functions exposed to tool-calling
// models: the current date and time, and calendar event creation and listing.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/calendar"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/metrics"
	"github.com/traylinx/switchAIChat/internal/provider"
)

// ErrToolNotFound is reported for tool names the executor does not know.
var ErrToolNotFound = errors.New("tool not found")

// DateTimeLayout formats the current timestamp (dd/mm/yyyy HH:MM:SS).
const DateTimeLayout = "02/01/2006 15:04:05"

var (
	timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}
	dateLayouts      = []string{"2006-01-02", time.RFC3339}
)

type handler func(ctx context.Context, conversationID string, args json.RawMessage) (any, error)

// Executor runs tool calls against the calendar store.
type Executor struct {
	calendar calendar.Store
	live     *config.Live
	now      func() time.Time
	handlers map[string]handler
}

// NewExecutor creates an executor. The live config supplies the timezone and
// the main agent's conversation id on every call.
func NewExecutor(cal calendar.Store, live *config.Live) *Executor {
	e := &Executor{calendar: cal, live: live, now: time.Now}
	e.handlers = map[string]handler{
		constant.ToolCurrentDateTime: e.currentDateTime,
		constant.ToolCreateEvent:     e.createEvent,
		constant.ToolListEvents:      e.listEvents,
	}
	return e
}

// Definitions returns the JSON schemas of the tools.
func (e *Executor) Definitions() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        constant.ToolCurrentDateTime,
			Description: "Returns the current date and time. Use it whenever the answer depends on today's date or the current time.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        constant.ToolCreateEvent,
			Description: "Creates a calendar event.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Event title"},
					"startTime":   map[string]any{"type": "string", "description": "Start time, ISO-8601 (e.g. 2026-10-14T15:00:00-03:00)"},
					"endTime":     map[string]any{"type": "string", "description": "End time, ISO-8601"},
					"description": map[string]any{"type": "string", "description": "Optional details"},
				},
				"required": []string{"title", "startTime", "endTime"},
			},
		},
		{
			Name:        constant.ToolListEvents,
			Description: "Lists calendar events, optionally between two dates.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"startDate": map[string]any{"type": "string", "description": "First day, ISO-8601 date (YYYY-MM-DD)"},
					"endDate":   map[string]any{"type": "string", "description": "Last day, ISO-8601 date (YYYY-MM-DD), inclusive"},
				},
			},
		},
	}
}

// Execute runs tool name with JSON arguments and returns a JSON result. Errors,
// including panics inside a tool, become {"error": ...} payloads.
func (e *Executor) Execute(ctx context.Context, conversationID, name, arguments string) (result string) {
	logger := log.WithFields(log.Fields{"tool": name, "conversation_id": conversationID})
	h, ok := e.handlers[name]
	if !ok {
		metrics.ToolInvocations.WithLabelValues("unknown", "not_found").Inc()
		logger.Warn("model requested an unknown tool")
		return errorPayload(name, ErrToolNotFound)
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.ToolInvocations.WithLabelValues(name, metrics.OutcomeError).Inc()
			logger.Errorf("tool panicked: %v", r)
			result = errorPayload(name, fmt.Errorf("tool failed: %v", r))
		}
	}()

	args := json.RawMessage(strings.TrimSpace(arguments))
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	out, err := h(ctx, conversationID, args)
	metrics.ToolInvocations.WithLabelValues(name, metrics.Outcome(err)).Inc()
	if err != nil {
		logger.WithError(err).Warn("tool failed")
		return errorPayload(name, err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return errorPayload(name, err)
	}
	logger.Debug("tool succeeded")
	return string(data)
}

func errorPayload(name string, err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error(), "tool": name})
	return string(data)
}

func (e *Executor) location() *time.Location {
	if e.live == nil {
		return time.UTC
	}
	return e.live.Get().Tools.Location()
}

// scope returns conversationID when it is the main agent's conversation.
func (e *Executor) scope(conversationID string) string {
	if e.live == nil || conversationID == "" {
		return ""
	}
	if main := e.live.MainConversationID(); main != "" && main == conversationID {
		return conversationID
	}
	return ""
}

func (e *Executor) currentDateTime(context.Context, string, json.RawMessage) (any, error) {
	loc := e.location()
	now := e.now().In(loc)
	return map[string]string{
		"dataHoraAtual": now.Format(DateTimeLayout),
		"iso":           now.Format(time.RFC3339),
		"timezone":      loc.String(),
	}, nil
}

type createEventArgs struct {
	Title       string `json:"title"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description"`
}

func (e *Executor) createEvent(ctx context.Context, conversationID string, raw json.RawMessage) (any, error) {
	if e.calendar == nil {
		return nil, errors.New("calendar is not available")
	}
	var args createEventArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	args.Title = strings.TrimSpace(args.Title)
	if args.Title == "" || args.StartTime == "" || args.EndTime == "" {
		return nil, errors.New("title, startTime and endTime are required")
	}
	loc := e.location()
	start, err := parseTime(args.StartTime, timestampLayouts, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid startTime: %w", err)
	}
	end, err := parseTime(args.EndTime, timestampLayouts, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid endTime: %w", err)
	}
	ev := &calendar.Event{
		Title:          args.Title,
		Description:    strings.TrimSpace(args.Description),
		Start:          start,
		End:            end,
		ConversationID: e.scope(conversationID),
	}
	if err = e.calendar.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return map[string]any{"success": true, "event": ev}, nil
}

type listEventsArgs struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (e *Executor) listEvents(ctx context.Context, conversationID string, raw json.RawMessage) (any, error) {
	if e.calendar == nil {
		return nil, errors.New("calendar is not available")
	}
	var args listEventsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	loc := e.location()
	c := calendar.Criteria{ConversationID: e.scope(conversationID)}
	if args.StartDate != "" {
		from, err := parseTime(args.StartDate, dateLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate: %w", err)
		}
		c.From = from
	}
	if args.EndDate != "" {
		to, err := parseTime(args.EndDate, dateLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate: %w", err)
		}
		// A bare date covers the whole day.
		if len(strings.TrimSpace(args.EndDate)) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		c.To = to
	}
	events, err := e.calendar.FindEventsByCriteria(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return map[string]any{"count": len(events), "events": events}, nil
}

func parseTime(s string, layouts []string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

var _ provider.ToolExecutor = (*Executor)(nil)
