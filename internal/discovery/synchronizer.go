// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
	"github.com/traylinx/switchAIChat/internal/constant"
	"github.com/traylinx/switchAIChat/internal/metrics"
)

// Change labels for the catalog change metric.
const (
	changeCreated       = "created"
	changeUpdated       = "updated"
	changeMarkedMissing = "marked_missing"
	changeDeactivated   = "deactivated"
	changeReactivated   = "reactivated"
)

// ProviderReport summarizes one provider's pass.
type ProviderReport struct {
	Provider      string `json:"provider"`
	Listed        int    `json:"listed"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	MarkedMissing int    `json:"marked_missing"`
	Deactivated   int    `json:"deactivated"`
	Reactivated   int    `json:"reactivated"`
	// Skipped is set when the provider listed nothing or its pass failed.
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// Changes returns the number of catalog changes in the pass, not counting
// refreshed last-seen times.
func (r ProviderReport) Changes() int {
	return r.Created + r.Updated + r.MarkedMissing + r.Deactivated + r.Reactivated
}

// Report summarizes one SyncAll run.
type Report struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Providers  []ProviderReport `json:"providers"`
}

// Synchronizer reconciles the catalog with the providers' live model lists.
type Synchronizer struct {
	store    catalog.Store
	source   Source
	defaults *catalog.Defaults
	grace    func() time.Duration
	now      func() time.Time
	// mu keeps runs from interleaving when the scheduler and a manual sync overlap.
	mu sync.Mutex
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithDefaults replaces the built-in static defaults.
func WithDefaults(d *catalog.Defaults) Option {
	return func(s *Synchronizer) { s.defaults = d }
}

// WithGracePeriod sets how long a missing model stays available. grace is
// read at the start of each run.
func WithGracePeriod(grace func() time.Duration) Option {
	return func(s *Synchronizer) { s.grace = grace }
}

// NewSynchronizer creates a Synchronizer over store.
func NewSynchronizer(store catalog.Store, source Source, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		source:   source,
		defaults: catalog.BuiltinDefaults(),
		grace:    func() time.Duration { return constant.CatalogGracePeriod },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAll runs every provider in order. A failing provider is reported and
// skipped; the remaining providers still run.
func (s *Synchronizer) SyncAll(ctx context.Context) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	grace := s.grace()
	report := Report{StartedAt: s.now().UTC()}
	for _, l := range s.source.Listers() {
		if ctx.Err() != nil {
			report.Providers = append(report.Providers, ProviderReport{Provider: l.ID(), Skipped: true, Error: ctx.Err().Error()})
			continue
		}
		pr := s.syncProvider(ctx, l, grace)
		report.Providers = append(report.Providers, pr)
	}
	report.FinishedAt = s.now().UTC()
	return report
}

func (s *Synchronizer) syncProvider(ctx context.Context, l Lister, grace time.Duration) ProviderReport {
	providerID := l.ID()
	logger := log.WithField("provider", providerID)
	pr := ProviderReport{Provider: providerID}

	candidates := dedupe(l.ListModels(ctx))
	pr.Listed = len(candidates)
	if len(candidates) == 0 {
		logger.Warn("provider listed no models; skipping catalog reconciliation")
		pr.Skipped = true
		metrics.CatalogSyncRuns.WithLabelValues(providerID, metrics.OutcomeSkipped).Inc()
		return pr
	}

	if err := s.reconcile(ctx, providerID, candidates, grace, &pr); err != nil {
		logger.WithError(err).Error("catalog synchronization failed")
		pr.Skipped = true
		pr.Error = err.Error()
		metrics.CatalogSyncRuns.WithLabelValues(providerID, metrics.OutcomeError).Inc()
		return pr
	}

	metrics.CatalogSyncRuns.WithLabelValues(providerID, metrics.OutcomeSuccess).Inc()
	s.recordChanges(pr)
	logger.WithFields(log.Fields{
		"listed":         pr.Listed,
		"created":        pr.Created,
		"updated":        pr.Updated,
		"marked_missing": pr.MarkedMissing,
		"deactivated":    pr.Deactivated,
		"reactivated":    pr.Reactivated,
	}).Info("catalog synchronized")
	return pr
}

func (s *Synchronizer) reconcile(ctx context.Context, providerID string, candidates []catalog.Candidate, grace time.Duration, pr *ProviderReport) error {
	now := s.now().UTC()
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		seen[c.Name] = struct{}{}
		if err := s.upsert(ctx, providerID, c, now, pr); err != nil {
			return fmt.Errorf("upsert %s: %w", c.Name, err)
		}
	}

	local, err := s.store.List(ctx, catalog.Filter{Provider: providerID})
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	for _, e := range local {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		if err := s.markMissing(ctx, e, now, grace, pr); err != nil {
			return fmt.Errorf("mark %s missing: %w", e.Name, err)
		}
	}
	return nil
}

func (s *Synchronizer) upsert(ctx context.Context, providerID string, c catalog.Candidate, now time.Time, pr *ProviderReport) error {
	label, caps, cfg, ctxLen := s.defaults.Describe(providerID, c)

	existing, err := s.store.Find(ctx, providerID, c.Name)
	if errors.Is(err, catalog.ErrNotFound) {
		seenAt := now
		e := &catalog.Entry{
			Provider:      providerID,
			Name:          c.Name,
			DisplayName:   label,
			Capabilities:  caps,
			DefaultConfig: cfg,
			ContextLength: ctxLen,
			IsAvailable:   true,
			LastSeenAt:    &seenAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.Create(ctx, e); err != nil {
			return err
		}
		pr.Created++
		return nil
	}
	if err != nil {
		return err
	}

	changed := existing.DisplayName != label ||
		existing.Capabilities != caps ||
		!existing.DefaultConfig.Equal(cfg) ||
		existing.ContextLength != ctxLen
	if changed {
		existing.DisplayName = label
		existing.Capabilities = caps
		existing.DefaultConfig = cfg
		existing.ContextLength = ctxLen
		existing.UpdatedAt = now
		pr.Updated++
	}
	if !existing.IsAvailable {
		existing.IsAvailable = true
		existing.UpdatedAt = now
		pr.Reactivated++
	}
	seenAt := now
	existing.LastSeenAt = &seenAt
	existing.MarkedAsMissingSince = nil
	return s.store.Update(ctx, existing)
}

func (s *Synchronizer) markMissing(ctx context.Context, e *catalog.Entry, now time.Time, grace time.Duration, pr *ProviderReport) error {
	if e.MarkedAsMissingSince == nil {
		since := now
		e.MarkedAsMissingSince = &since
		e.UpdatedAt = now
		pr.MarkedMissing++
		return s.store.Update(ctx, e)
	}
	if !e.IsAvailable || !Expired(*e.MarkedAsMissingSince, now, grace) {
		return nil
	}
	e.IsAvailable = false
	e.UpdatedAt = now
	pr.Deactivated++
	return s.store.Update(ctx, e)
}

// Expired reports whether a model missing since since has outlived grace.
// The boundary itself is still within grace.
func Expired(since, now time.Time, grace time.Duration) bool {
	return now.Sub(since) > grace
}

func (s *Synchronizer) recordChanges(pr ProviderReport) {
	for change, n := range map[string]int{
		changeCreated:       pr.Created,
		changeUpdated:       pr.Updated,
		changeMarkedMissing: pr.MarkedMissing,
		changeDeactivated:   pr.Deactivated,
		changeReactivated:   pr.Reactivated,
	} {
		if n > 0 {
			metrics.CatalogChanges.WithLabelValues(pr.Provider, change).Add(float64(n))
		}
	}
}

// dedupe drops unnamed candidates and repeated names, keeping the first.
func dedupe(in []catalog.Candidate) []catalog.Candidate {
	out := make([]catalog.Candidate, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		if c.Name == "" {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}
