// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package search supplies web search results for providers that cannot ground
// their answers themselves. Serper is used when an API key is configured, with
// the DuckDuckGo instant answer API as the key-less fallback.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/config"
	"github.com/traylinx/switchAIChat/internal/metrics"
)

const (
	// SerperEndpoint is the Serper search API.
	SerperEndpoint = "https://google.serper.dev/search"
	// DuckDuckGoEndpoint is the DuckDuckGo instant answer API.
	DuckDuckGoEndpoint = "https://api.duckduckgo.com/"

	backendSerper     = "serper"
	backendDuckDuckGo = "duckduckgo"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Searcher looks up a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Client implements Searcher over Serper and DuckDuckGo.
type Client struct {
	http        *resty.Client
	apiKey      string
	maxResults  int
	serperURL   string
	fallbackURL string
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoints overrides the Serper and DuckDuckGo endpoints.
func WithEndpoints(serperURL, duckDuckGoURL string) Option {
	return func(c *Client) {
		c.serperURL = serperURL
		c.fallbackURL = duckDuckGoURL
	}
}

// NewClient creates a search client from cfg.
func NewClient(cfg config.SearchConfig, opts ...Option) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		http:        resty.New().SetHeader("User-Agent", "switchai-chat/search").SetTimeout(timeout),
		apiKey:      strings.TrimSpace(cfg.SerperAPIKey),
		maxResults:  cfg.MaxResults,
		serperURL:   SerperEndpoint,
		fallbackURL: DuckDuckGoEndpoint,
	}
	if c.maxResults <= 0 {
		c.maxResults = 5
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries Serper when configured and falls back to DuckDuckGo.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if c.apiKey != "" {
		results, err := c.searchSerper(ctx, query)
		metrics.WebSearches.WithLabelValues(backendSerper, metrics.Outcome(err)).Inc()
		if err == nil {
			return results, nil
		}
		log.WithError(err).Warn("serper search failed, falling back to duckduckgo")
	}
	results, err := c.searchDuckDuckGo(ctx, query)
	metrics.WebSearches.WithLabelValues(backendDuckDuckGo, metrics.Outcome(err)).Inc()
	return results, err
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answerBox"`
}

func (c *Client) searchSerper(ctx context.Context, query string) ([]Result, error) {
	var out serperResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"q": query, "num": c.maxResults}).
		SetResult(&out).
		Post(c.serperURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query serper: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("serper error (status %d): %s", resp.StatusCode(), resp.String())
	}

	results := make([]Result, 0, c.maxResults)
	if ab := out.AnswerBox; ab != nil && (ab.Answer != "" || ab.Snippet != "") {
		results = append(results, Result{
			Title:   fallbackTitle(ab.Title, query),
			Snippet: orSelect(ab.Answer, ab.Snippet),
			Link:    ab.Link,
		})
	}
	for _, o := range out.Organic {
		if len(results) >= c.maxResults {
			break
		}
		results = append(results, Result{Title: fallbackTitle(o.Title, query), Snippet: o.Snippet, Link: o.Link})
	}
	return results, nil
}

type duckDuckGoResponse struct {
	Heading       string           `json:"Heading"`
	AbstractText  string           `json:"AbstractText"`
	AbstractURL   string           `json:"AbstractURL"`
	RelatedTopics []duckDuckTopics `json:"RelatedTopics"`
}

type duckDuckTopics struct {
	Text     string           `json:"Text"`
	FirstURL string           `json:"FirstURL"`
	Result   string           `json:"Result"`
	Topics   []duckDuckTopics `json:"Topics"`
}

func (c *Client) searchDuckDuckGo(ctx context.Context, query string) ([]Result, error) {
	var ddg duckDuckGoResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("format", "json").
		SetQueryParam("no_html", "1").
		SetQueryParam("skip_disambig", "1").
		SetResult(&ddg).
		// The API answers with application/x-javascript.
		ForceContentType("application/json").
		Get(c.fallbackURL)
	if err != nil {
		return nil, fmt.Errorf("fallback search failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fallback search HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	results := make([]Result, 0, c.maxResults)
	if ddg.AbstractURL != "" || ddg.AbstractText != "" {
		results = append(results, Result{
			Title:   fallbackTitle(ddg.Heading, query),
			Snippet: ddg.AbstractText,
			Link:    ddg.AbstractURL,
		})
	}
	for _, topic := range flattenDuckTopics(ddg.RelatedTopics) {
		if len(results) >= c.maxResults {
			break
		}
		if topic.FirstURL == "" && topic.Result == "" {
			continue
		}
		results = append(results, Result{
			Title:   fallbackTitle(topic.Text, query),
			Snippet: topic.Text,
			Link:    orSelect(topic.FirstURL, topic.Result),
		})
	}
	return results, nil
}

func flattenDuckTopics(topics []duckDuckTopics) []duckDuckTopics {
	var out []duckDuckTopics
	for _, topic := range topics {
		if len(topic.Topics) > 0 {
			out = append(out, flattenDuckTopics(topic.Topics)...)
			continue
		}
		out = append(out, topic)
	}
	return out
}

func fallbackTitle(title, query string) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	return fmt.Sprintf("Result for %q", query)
}

func orSelect(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// FormatResults renders results as the numbered plain-text block appended to
// the system prompt. It returns "" for no results.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Web search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		if s := strings.TrimSpace(r.Snippet); s != "" {
			fmt.Fprintf(&sb, "   %s\n", s)
		}
		if r.Link != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Link)
		}
	}
	sb.WriteString("Use these results when they are relevant and cite the links you rely on.")
	return sb.String()
}

var _ Searcher = (*Client)(nil)
