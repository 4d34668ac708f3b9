// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// errRawSocketNotAvailable is returned when a raw socket cannot be opened due to lack of NET_RAW capabilities.
// This typically occurs when the process runs unprivileged or in an environment where raw sockets are
// restricted (e.g., some containerized environments). UDP probing falls back to the socket error queue.
var errRawSocketNotAvailable = errors.New("no NET_RAW capabilities, raw sockets not available")

// errDuplicateProbe is returned when a probe id is registered twice in one run.
var errDuplicateProbe = errors.New("probe already registered")

// ResolutionError is returned when the target host cannot be resolved.
// It is fatal for the run and is reported before any probe is sent.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: Temporary failure in name resolution", e.Host)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CaptureError is returned by the sniffer when reading from a capture socket failed
// for another reason than its deadline.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// isTimeout checks if the error is related to an expected deadline
// or cancellation of a read.
func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
