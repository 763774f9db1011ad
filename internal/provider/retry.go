// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/constant"
)

// RetryPolicy retries an operation a fixed number of times with a fixed delay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ListModelsRetry is the policy used by every adapter's ListModels.
func ListModelsRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: constant.ListModelsAttempts, Delay: constant.ListModelsRetryDelay}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs fn until it succeeds, attempts are exhausted, or ctx is done.
// It returns the last error.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		log.WithFields(log.Fields{"op": op, "attempt": attempt, "max_attempts": attempts}).WithError(err).Warn("operation failed")
		if attempt == attempts {
			break
		}
		if errSleep := p.sleep(ctx, p.Delay); errSleep != nil {
			return zero, errSleep
		}
	}
	return zero, lastErr
}
