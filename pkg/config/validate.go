// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/telekom/traceprobe/internal/logger"
)

const maxResolveRetries = 5

// Validate validates the startup config
func (c *Config) Validate(ctx context.Context) (err error) {
	log := logger.FromContext(ctx)

	if vErr := c.Options().Validate(); vErr != nil {
		log.Error("The probe options are invalid", "error", vErr)
		err = errors.Join(err, fmt.Errorf("%w: %w", ErrInvalidProbeOptions, vErr))
	}

	if !c.OutputFormat().IsValid() {
		log.Error("The output format is not supported", "output", c.Output)
		err = errors.Join(err, ErrInvalidOutput)
	}

	if vErr := c.Resolve.Validate(ctx); vErr != nil {
		log.Error("The resolve configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if c.HasTelemetry() {
		if vErr := c.Telemetry.Validate(ctx); vErr != nil {
			log.Error("The telemetry configuration is invalid")
			err = errors.Join(err, vErr)
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate validates the resolve configuration
func (c *ResolveConfig) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if c.Retry.Count < 0 || c.Retry.Count > maxResolveRetries {
		log.Error("The amount of resolve retries should be between 0 and 5", "retryCount", c.Retry.Count)
		return ErrInvalidResolveRetryCount
	}
	if c.Retry.Delay < 0 {
		log.Error("The resolve retry delay should be equal or above 0", "retryDelay", c.Retry.Delay)
		return ErrInvalidResolveRetryDelay
	}
	return nil
}
