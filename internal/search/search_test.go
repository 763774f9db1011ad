// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/traylinx/switchAIChat/internal/config"
)

const ddgBody = `{"Heading":"Lisbon","AbstractText":"Capital of Portugal.","AbstractURL":"https://en.wikipedia.org/wiki/Lisbon",
	"RelatedTopics":[{"Text":"Tram 28","FirstURL":"https://duckduckgo.com/Tram_28"},
	{"Name":"Places","Topics":[{"Text":"Alfama","FirstURL":"https://duckduckgo.com/Alfama"}]},
	{"Text":"","FirstURL":""}]}`

func duckDuckGo(t *testing.T, calls *int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/x-javascript")
		fmt.Fprint(w, ddgBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch_Serper(t *testing.T) {
	var ddgCalls int32
	ddg := duckDuckGo(t, &ddgCalls)
	serper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "serper-key", r.Header.Get("X-API-KEY"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "go generics", gjson.GetBytes(body, "q").String())
		assert.Equal(t, int64(2), gjson.GetBytes(body, "num").Int())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"organic":[{"title":"Tutorial","link":"https://go.dev/doc/tutorial/generics","snippet":"Learn generics"},
			{"title":"Spec","link":"https://go.dev/ref/spec","snippet":"Type parameters"},
			{"title":"Extra","link":"https://example.com"}]}`)
	}))
	defer serper.Close()

	c := NewClient(config.SearchConfig{SerperAPIKey: "serper-key", MaxResults: 2}, WithEndpoints(serper.URL, ddg.URL))
	results, err := c.Search(context.Background(), "  go generics ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "Tutorial", Snippet: "Learn generics", Link: "https://go.dev/doc/tutorial/generics"}, results[0])
	assert.Equal(t, int32(0), atomic.LoadInt32(&ddgCalls))
}

func TestSearch_FallsBackToDuckDuckGo(t *testing.T) {
	var ddgCalls int32
	ddg := duckDuckGo(t, &ddgCalls)
	serper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer serper.Close()

	c := NewClient(config.SearchConfig{SerperAPIKey: "bad", MaxResults: 5}, WithEndpoints(serper.URL, ddg.URL))
	results, err := c.Search(context.Background(), "lisbon")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Lisbon", results[0].Title)
	assert.Equal(t, "https://duckduckgo.com/Alfama", results[2].Link)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ddgCalls))
}

func TestSearch_KeylessUsesDuckDuckGo(t *testing.T) {
	var ddgCalls int32
	ddg := duckDuckGo(t, &ddgCalls)
	c := NewClient(config.SearchConfig{MaxResults: 1}, WithEndpoints("http://127.0.0.1:1", ddg.URL))
	results, err := c.Search(context.Background(), "lisbon")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = c.Search(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ddgCalls))
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, "", FormatResults("q", nil))

	block := FormatResults("weather", []Result{
		{Title: "Forecast", Snippet: "Sunny", Link: "https://a"},
		{Title: "Radar", Link: "https://b"},
	})
	lines := strings.Split(block, "\n")
	assert.Equal(t, `Web search results for "weather":`, lines[0])
	assert.Equal(t, "1. Forecast", lines[1])
	assert.Equal(t, "   Sunny", lines[2])
	assert.Equal(t, "   https://a", lines[3])
	assert.Equal(t, "2. Radar", lines[4])
	assert.Equal(t, "   https://b", lines[5])
}
