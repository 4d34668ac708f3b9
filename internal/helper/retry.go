// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"time"

	"github.com/telekom/traceprobe/internal/logger"
)

// RetryConfig configures how often and how fast an [Effector] is retried.
type RetryConfig struct {
	// Count is the number of retries after the first attempt.
	Count int `json:"count" yaml:"count" mapstructure:"count"`
	// Delay is the initial backoff delay, doubled on every retry.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// Effector will be the function called by the Retry function
type Effector func(context.Context) error

// Retry runs the effector until it succeeds or the retries are used up,
// backing off exponentially between attempts.
// The error of the last attempt is returned.
func Retry(effector Effector, rc RetryConfig) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := logger.FromContext(ctx)
		for attempt := 1; ; attempt++ {
			err := effector(ctx)
			if err == nil || attempt > rc.Count {
				return err
			}

			delay := getExpBackoff(rc.Delay, attempt)
			log.WarnContext(ctx, "Effector call failed, retrying", "attempt", attempt, "delay", delay, "error", err)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// getExpBackoff calculates the delay before the given attempt.
// The first attempt waits for the initial delay.
func getExpBackoff(initialDelay time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return initialDelay
	}
	return initialDelay << (attempt - 1)
}
