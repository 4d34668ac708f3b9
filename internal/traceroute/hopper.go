// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"sync"

	"github.com/telekom/traceprobe/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// hopper sends the probes of one hop and collects their outcomes.
type hopper struct {
	generator  *Generator
	correlator *correlator
	captures   []capture
	opts       *Options
	metrics    *metrics
}

// window is the state of one hop between sending its probes and reporting it.
type window struct {
	ttl      int
	outcomes []Outcome
	// pending holds the registered probes, in index order.
	pending []*completableProbe
	cancel  context.CancelFunc
	sniffed chan error
}

// probe starts the sniffer for the hop and sends all its probes.
// Probes are registered before they are written so that no response can
// arrive for an unknown probe. The returned window must be passed to await.
func (h *hopper) probe(ctx context.Context, ttl int) *window {
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	wctx, cancel := context.WithCancel(ctx)
	w := &window{
		ttl:      ttl,
		outcomes: make([]Outcome, h.opts.Queries),
		cancel:   cancel,
		sniffed:  make(chan error, 1),
	}

	sniffer := newSniffer(h.captures, h.correlator.Complete, h.metrics)
	go func() {
		w.sniffed <- sniffer.Run(wctx)
	}()

	ioErr := func(index int, err error) *ProbeError {
		return &ProbeError{Kind: ErrorIO, TTL: ttl, Index: index, Cause: err}
	}

	for index := range h.opts.Queries {
		p, err := h.generator.Build(ttl, index)
		if err != nil {
			w.outcomes[index] = ioErr(index, err)
			continue
		}

		cp, err := h.correlator.Register(p)
		if err != nil {
			w.outcomes[index] = ioErr(index, err)
			continue
		}

		if err := h.generator.Transmit(p); err != nil {
			h.correlator.Discard(p.ID)
			log.WarnContext(ctx, "Failed to send probe", "ttl", ttl, "index", index, "error", err)
			span.AddEvent("Probe not sent", trace.WithAttributes(
				attribute.Int("traceroute.probe.index", index),
				attribute.String("traceroute.probe.error", err.Error()),
			))
			w.outcomes[index] = ioErr(index, err)
			continue
		}
		h.correlator.Sent(p.ID)
		h.metrics.probeSent(p.Method)
		w.pending = append(w.pending, cp)
	}
	return w
}

// await waits for every sent probe of the window until it is answered or its
// wait time has passed, then stops the sniffer. The outcomes are kept in
// index order regardless of the order the responses arrived in.
func (h *hopper) await(ctx context.Context, w *window) Hop {
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	var wg sync.WaitGroup
	for _, cp := range w.pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.correlator.Await(ctx, cp.probe.ID, cp.sentAt.Add(h.opts.Wait))
			if err != nil {
				var perr *ProbeError
				if !errors.As(err, &perr) {
					perr = &ProbeError{Kind: ErrorIO, TTL: w.ttl, Index: cp.probe.Index, Cause: err}
				}
				w.outcomes[cp.probe.Index] = perr
				return
			}
			w.outcomes[cp.probe.Index] = res
		}()
	}
	wg.Wait()

	w.cancel()
	if err := <-w.sniffed; err != nil {
		log.ErrorContext(ctx, "Capture failed, remaining probes of the hop timed out", "ttl", w.ttl, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Capture failed")
		h.metrics.captureFailed(h.opts.Method)
	}

	for _, o := range w.outcomes {
		h.metrics.observe(h.opts.Method, o)
		span.AddEvent("Probe outcome", trace.WithAttributes(outcomeAttributes(o)...))
	}
	return Hop{TTL: w.ttl, Outcomes: w.outcomes}
}

// outcomeAttributes describes an outcome as span attributes.
func outcomeAttributes(o Outcome) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int("traceroute.probe.index", o.ProbeIndex())}
	switch v := o.(type) {
	case ProbeResult:
		attrs = append(attrs,
			attribute.String("traceroute.probe.from", v.From.String()),
			attribute.Stringer("traceroute.probe.rtt", v.RTT),
			attribute.Stringer("traceroute.probe.reply", v.Kind),
		)
	case *ProbeError:
		attrs = append(attrs, attribute.Stringer("traceroute.probe.error", v.Kind))
	}
	return attrs
}
