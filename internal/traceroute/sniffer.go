// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"time"

	"github.com/telekom/traceprobe/internal/logger"
	"golang.org/x/sync/errgroup"
)

// aLongTimeAgo is a deadline in the past, used to unblock pending reads.
var aLongTimeAgo = time.Unix(1, 0)

// sink receives every decoded response. It reports whether the response
// belonged to a registered probe.
type sink func(ProbeResponse) (ProbeResult, bool)

// Sniffer reads responses from the captures of a session for the duration of a hop window.
type Sniffer struct {
	captures []capture
	sink     sink
	metrics  *metrics
}

func newSniffer(captures []capture, s sink, m *metrics) *Sniffer {
	return &Sniffer{captures: captures, sink: s, metrics: m}
}

// Run reads from all captures until ctx is done. Reads stop at the ctx deadline.
// The end of the window is not an error; any other read failure ends the
// window and is returned as a [*CaptureError].
func (s *Sniffer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.captures {
		g.Go(func() error {
			return s.read(gctx, c)
		})
	}
	if err := g.Wait(); err != nil {
		return &CaptureError{Err: err}
	}
	return nil
}

func (s *Sniffer) read(ctx context.Context, c capture) error {
	log := logger.FromContext(ctx)

	deadline, _ := ctx.Deadline()
	if err := c.SetReadDeadline(deadline); err != nil {
		return err
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = c.SetReadDeadline(aLongTimeAgo)
	})
	defer func() {
		// The deadline must not be reset by a late callback once the next window starts.
		if !stop() {
			<-fired
		}
	}()

	for {
		resp, ok, err := c.Read()
		if err != nil {
			if isTimeout(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !ok {
			s.metrics.packet(false)
			continue
		}

		res, matched := s.sink(resp)
		s.metrics.packet(matched)
		if matched {
			log.DebugContext(ctx, "Matched response", "id", resp.ID, "from", resp.From, "kind", resp.Kind, "rtt", res.RTT)
		}
	}
}
