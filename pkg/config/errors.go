// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidProbeOptions is returned when the probe options are invalid
	ErrInvalidProbeOptions = errors.New("invalid probe options")
	// ErrInvalidOutput is returned when the output format is unknown
	ErrInvalidOutput = errors.New("invalid output format")
	// ErrInvalidResolveRetryCount is returned when the resolve retry count is invalid
	ErrInvalidResolveRetryCount = errors.New("invalid resolve retry count")
	// ErrInvalidResolveRetryDelay is returned when the resolve retry delay is invalid
	ErrInvalidResolveRetryDelay = errors.New("invalid resolve retry delay")
)
