// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"
	log "github.com/sirupsen/logrus"
)

// JobTimeout bounds one scheduled synchronization.
const JobTimeout = 10 * time.Minute

// Syncer runs one synchronization.
type Syncer interface {
	SyncAll(ctx context.Context) Report
}

// Scheduler runs the synchronizer on a cron schedule.
type Scheduler struct {
	ctab     *crontab.Crontab
	syncer   Syncer
	schedule string
	onStart  bool
	done     chan struct{}
}

// NewScheduler creates a scheduler for a 5-field cron expression. An empty
// schedule disables periodic runs.
func NewScheduler(syncer Syncer, schedule string, syncOnStart bool) *Scheduler {
	return &Scheduler{
		ctab:     crontab.New(),
		syncer:   syncer,
		schedule: schedule,
		onStart:  syncOnStart,
	}
}

// Start registers the job and, when configured, runs one synchronization in
// the background right away.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule != "" {
		if err := s.ctab.AddJob(s.schedule, func() { s.run(ctx) }); err != nil {
			return fmt.Errorf("invalid catalog sync schedule %q: %w", s.schedule, err)
		}
		log.WithField("schedule", s.schedule).Info("catalog sync scheduled")
	}
	s.done = make(chan struct{})
	if s.onStart {
		go func() {
			s.run(ctx)
			close(s.done)
		}()
	} else {
		close(s.done)
	}
	return nil
}

func (s *Scheduler) run(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, JobTimeout)
	defer cancel()
	report := s.syncer.SyncAll(ctx)
	log.WithField("providers", len(report.Providers)).
		WithField("duration", report.FinishedAt.Sub(report.StartedAt)).
		Debug("scheduled catalog sync finished")
}

// Stop removes the scheduled job and waits for the startup run to finish.
func (s *Scheduler) Stop() {
	s.ctab.Shutdown()
	if s.done != nil {
		<-s.done
	}
}
