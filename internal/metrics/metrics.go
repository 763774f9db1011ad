// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics declares the Prometheus collectors of the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "switchai"
	subsystem = "chat"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

var (
	// ProviderRequests counts adapter calls.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_requests_total",
			Help:      "Total provider adapter calls",
		},
		[]string{"provider", "operation", "outcome"},
	)

	// ToolInvocations counts tool calls requested by models.
	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations",
		},
		[]string{"tool", "outcome"},
	)

	// CatalogSyncRuns counts per-provider synchronization passes.
	CatalogSyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "catalog_sync_runs_total",
			Help:      "Total catalog synchronization passes per provider",
		},
		[]string{"provider", "outcome"},
	)

	// CatalogChanges counts catalog entry changes applied by the synchronizer.
	CatalogChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "catalog_entry_changes_total",
			Help:      "Catalog entry changes by kind",
		},
		[]string{"provider", "change"},
	)

	// StreamTerminations counts streaming sessions by terminal reason.
	StreamTerminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stream_terminations_total",
			Help:      "Streaming sessions by termination reason",
		},
		[]string{"reason"},
	)

	// WebSearches counts fallback web searches.
	WebSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "web_searches_total",
			Help:      "Fallback web search lookups",
		},
		[]string{"backend", "outcome"},
	)
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
