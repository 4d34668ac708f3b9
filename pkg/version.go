// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package pkg contains metadata about traceprobe.
package pkg

// Version is the current version of traceprobe.
// It is set by cmd.Execute from the version given at build time.
var Version string
