// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/traylinx/switchAIChat/internal/calendar"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/constant"
)

func newExecutor(t *testing.T) (*Executor, *calendar.MemoryStore) {
	t.Helper()
	cfg := config.Default()
	cfg.Agent.MainConversationID = "main-conv"
	cal := calendar.NewMemoryStore()
	e := NewExecutor(cal, config.NewLive(cfg))
	e.now = func() time.Time { return time.Date(2026, 10, 14, 13, 5, 9, 0, time.UTC) }
	return e, cal
}

func TestDefinitions(t *testing.T) {
	e, _ := newExecutor(t)
	var names []string
	for _, d := range e.Definitions() {
		names = append(names, d.Name)
		assert.Equal(t, "object", d.Parameters["type"])
	}
	assert.Equal(t, []string{constant.ToolCurrentDateTime, constant.ToolCreateEvent, constant.ToolListEvents}, names)
}

func TestCurrentDateTime(t *testing.T) {
	e, _ := newExecutor(t)
	out := e.Execute(context.Background(), "", constant.ToolCurrentDateTime, "")
	assert.Equal(t, "14/10/2026 10:05:09", gjson.Get(out, "dataHoraAtual").String())
	assert.Equal(t, "America/Sao_Paulo", gjson.Get(out, "timezone").String())
}

func TestUnknownTool(t *testing.T) {
	e, _ := newExecutor(t)
	out := e.Execute(context.Background(), "c", "send_email", "{}")
	assert.Equal(t, "tool not found", gjson.Get(out, "error").String())
	assert.Equal(t, "send_email", gjson.Get(out, "tool").String())
}

func TestCreateEventScoping(t *testing.T) {
	tests := []struct {
		name           string
		conversationID string
		wantScope      string
	}{
		{"main conversation is attributed", "main-conv", "main-conv"},
		{"other conversation is unscoped", "other", ""},
		{"no conversation", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, cal := newExecutor(t)
			out := e.Execute(context.Background(), tt.conversationID, constant.ToolCreateEvent,
				`{"title":"Dentist","startTime":"2026-10-20T15:00:00-03:00","endTime":"2026-10-20T16:00","description":"checkup"}`)
			require.True(t, gjson.Get(out, "success").Bool(), out)

			events, err := cal.FindEventsByCriteria(context.Background(), calendar.Criteria{})
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantScope, events[0].ConversationID)
			assert.Equal(t, "checkup", events[0].Description)
			// The zone-less end time is read in the configured timezone.
			assert.Equal(t, time.Hour, events[0].End.Sub(events[0].Start))
		})
	}
}

func TestCreateEventValidation(t *testing.T) {
	e, _ := newExecutor(t)
	for _, args := range []string{
		`{"title":"x"}`,
		`{"title":"x","startTime":"tomorrow","endTime":"2026-10-20T16:00:00Z"}`,
		`not json`,
		`{"title":"x","startTime":"2026-10-20T16:00:00Z","endTime":"2026-10-20T15:00:00Z"}`,
	} {
		out := e.Execute(context.Background(), "main-conv", constant.ToolCreateEvent, args)
		assert.NotEmpty(t, gjson.Get(out, "error").String(), args)
	}
}

func TestListEvents(t *testing.T) {
	e, cal := newExecutor(t)
	ctx := context.Background()
	loc := e.location()
	add := func(title, conv string, day int) {
		start := time.Date(2026, 10, day, 9, 0, 0, 0, loc)
		require.NoError(t, cal.CreateEvent(ctx, &calendar.Event{Title: title, Start: start, End: start.Add(time.Hour), ConversationID: conv}))
	}
	add("main-15", "main-conv", 15)
	add("main-17", "main-conv", 17)
	add("other-15", "", 15)

	out := e.Execute(ctx, "main-conv", constant.ToolListEvents, `{"startDate":"2026-10-15","endDate":"2026-10-15"}`)
	assert.Equal(t, int64(1), gjson.Get(out, "count").Int(), out)
	assert.Equal(t, "main-15", gjson.Get(out, "events.0.title").String())

	out = e.Execute(ctx, "someone-else", constant.ToolListEvents, `{}`)
	assert.Equal(t, int64(3), gjson.Get(out, "count").Int(), out)
}

type brokenCalendar struct{}

func (brokenCalendar) CreateEvent(context.Context, *calendar.Event) error {
	panic("boom")
}

func (brokenCalendar) FindEventsByCriteria(context.Context, calendar.Criteria) ([]calendar.Event, error) {
	return nil, errors.New("db down")
}

func TestToolFailuresBecomePayloads(t *testing.T) {
	e := NewExecutor(brokenCalendar{}, config.NewLive(config.Default()))

	out := e.Execute(context.Background(), "c", constant.ToolCreateEvent,
		`{"title":"x","startTime":"2026-10-20T15:00:00Z","endTime":"2026-10-20T16:00:00Z"}`)
	assert.Contains(t, gjson.Get(out, "error").String(), "boom")

	out = e.Execute(context.Background(), "c", constant.ToolListEvents, `{}`)
	assert.Contains(t, gjson.Get(out, "error").String(), "db down")
}
