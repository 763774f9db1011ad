// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	runs atomic.Int32
}

func (c *countingSyncer) SyncAll(context.Context) Report {
	c.runs.Add(1)
	return Report{}
}

func TestSchedulerRunsOnStart(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, "0 */6 * * *", true)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Equal(t, int32(1), syncer.runs.Load())
}

func TestSchedulerWithoutStartupRun(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, "", false)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Zero(t, syncer.runs.Load())
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	s := NewScheduler(&countingSyncer{}, "every tuesday", false)
	err := s.Start(context.Background())
	require.Error(t, err)
	s.Stop()
}

func TestSchedulerSkipsCancelledContext(t *testing.T) {
	syncer := &countingSyncer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScheduler(syncer, "", true)
	require.NoError(t, s.Start(ctx))
	s.Stop()
	assert.Zero(t, syncer.runs.Load())
}
