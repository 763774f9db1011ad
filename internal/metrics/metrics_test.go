// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeError, Outcome(errors.New("boom")))
}

func TestCountersAreLabelled(t *testing.T) {
	before := testutil.ToFloat64(StreamTerminations.WithLabelValues("timeout"))
	StreamTerminations.WithLabelValues("timeout").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StreamTerminations.WithLabelValues("timeout")))
}
