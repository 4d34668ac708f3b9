// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"net/netip"

	"github.com/telekom/traceprobe/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// state is a step of a traceroute walk.
type state int

const (
	stateProbingHop state = iota + 1
	stateAwaitingHop
	stateReportingHop
	stateDone
)

func (s state) String() string {
	switch s {
	case stateProbingHop:
		return "probing"
	case stateAwaitingHop:
		return "awaiting"
	case stateReportingHop:
		return "reporting"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// terminal walks the path to one target hop by hop, starting at the first TTL.
// It is created once the target is resolved and the session is open.
type terminal struct {
	target   Target
	opts     *Options
	hopper   *hopper
	namer    *namer
	reporter Reporter
	tracer   trace.Tracer
}

// walk runs the state machine until the target is reached or the
// maximum TTL has been reported. It returns the collected path.
func (t *terminal) walk(ctx context.Context) *Result {
	log := logger.FromContext(ctx)
	res := &Result{Target: t.target, Method: t.opts.Method}

	var (
		ttl      = t.opts.FirstTTL
		w        *window
		hop      Hop
		hopCtx   context.Context
		hopSpan  trace.Span
		endState = func(s state) { log.DebugContext(ctx, "Hop state finished", "ttl", ttl, "state", s) }
	)

	st := stateProbingHop
	for st != stateDone {
		switch st {
		case stateProbingHop:
			hopCtx, hopSpan = t.tracer.Start(ctx, "Hop", trace.WithAttributes(
				attribute.Stringer("traceroute.target.address", t.target.Addr),
				attribute.Int("traceroute.target.ttl", ttl),
			))
			hopCtx = logger.IntoContext(hopCtx, log.With("ttl", ttl))
			w = t.hopper.probe(hopCtx, ttl)
			endState(st)
			st = stateAwaitingHop

		case stateAwaitingHop:
			hop = t.hopper.await(hopCtx, w)
			endState(st)
			st = stateReportingHop

		case stateReportingHop:
			hop.Reached = reachedBy(hop, t.target.Addr)
			if !t.opts.Numeric {
				t.resolveNames(hopCtx, &hop)
			}
			res.Hops = append(res.Hops, hop)
			t.reporter.Hop(hopCtx, hop)

			hopSpan.SetAttributes(attribute.Bool("traceroute.target.reached", hop.Reached))
			hopSpan.End()
			endState(st)

			switch {
			case hop.Reached:
				res.Reached = true
				st = stateDone
			case ttl >= t.opts.MaxHops:
				st = stateDone
			case ctx.Err() != nil:
				log.WarnContext(ctx, "Traceroute canceled", "ttl", ttl, "error", ctx.Err())
				st = stateDone
			default:
				ttl++
				st = stateProbingHop
			}
		}
	}
	return res
}

// reachedBy reports whether any probe of the hop was answered by the target.
func reachedBy(hop Hop, target netip.Addr) bool {
	for _, o := range hop.Outcomes {
		if r, ok := o.(ProbeResult); ok && r.From == target {
			return true
		}
	}
	return false
}

// resolveNames sets the hostnames of the hop's responders.
func (t *terminal) resolveNames(ctx context.Context, hop *Hop) {
	responders := hop.Responders()
	if len(responders) == 0 {
		return
	}
	names := t.namer.names(ctx, responders)
	for i, o := range hop.Outcomes {
		if r, ok := o.(ProbeResult); ok {
			r.Hostname = names[r.From]
			hop.Outcomes[i] = r
		}
	}
}
