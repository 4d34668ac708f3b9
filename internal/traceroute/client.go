// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/traceprobe/internal/helper"
	"github.com/telekom/traceprobe/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ Client = (*client)(nil)

// Client is able to run a traceroute to a target host.
//
//go:generate go tool moq -out client_moq.go . Client
type Client interface {
	// Run resolves the host and walks the path to it.
	// It returns a [*ResolutionError] if the host cannot be resolved,
	// in which case no probe is sent.
	Run(ctx context.Context, host string, opts *Options) (*Result, error)
}

// Reporter receives the progress of a run. Hop is called once per hop, in TTL order.
//
//go:generate go tool moq -out reporter_moq.go . Reporter
type Reporter interface {
	// Start is called once the target is resolved, before any probe is sent.
	Start(ctx context.Context, target Target, opts *Options)
	// Hop is called with every completed hop.
	Hop(ctx context.Context, hop Hop)
	// Finish is called with the full path once the walk is done.
	Finish(ctx context.Context, res *Result)
}

// ClientOption configures a [Client].
type ClientOption func(*client)

// WithResolver sets the resolver for the target and the responder names.
func WithResolver(r Resolver) ClientOption {
	return func(c *client) {
		c.resolver = r
	}
}

// WithRegisterer sets the registerer for the probe metrics.
func WithRegisterer(r prometheus.Registerer) ClientOption {
	return func(c *client) {
		c.registerer = r
	}
}

// WithClock sets the clock used to stamp sent probes.
func WithClock(now func() time.Time) ClientOption {
	return func(c *client) {
		c.now = now
	}
}

// WithLookupTimeout bounds the reverse lookups of a hop.
func WithLookupTimeout(d time.Duration) ClientOption {
	return func(c *client) {
		c.lookupTimeout = d
	}
}

// withSessionFactory replaces the socket layer.
func withSessionFactory(f sessionFactory) ClientOption {
	return func(c *client) {
		c.openSession = f
	}
}

type client struct {
	reporter      Reporter
	resolver      Resolver
	registerer    prometheus.Registerer
	openSession   sessionFactory
	now           func() time.Time
	lookupTimeout time.Duration
	metrics       *metrics
	namer         *namer
}

// NewClient creates a [Client] handing its progress to the reporter.
func NewClient(reporter Reporter, opts ...ClientOption) (Client, error) {
	c := &client{
		reporter:      reporter,
		resolver:      NewResolver(),
		openSession:   openSession,
		now:           time.Now,
		lookupTimeout: defaultLookupTimeout,
		metrics:       newMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reporter == nil {
		c.reporter = nopReporter{}
	}

	if err := c.metrics.register(c.registerer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	n, err := newNamer(c.resolver, c.lookupTimeout)
	if err != nil {
		return nil, err
	}
	c.namer = n
	return c, nil
}

func (c *client) Run(ctx context.Context, host string, opts *Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	tracer := trace.SpanFromContext(ctx).TracerProvider().Tracer("traceroute.client")
	ctx, sp := tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("traceroute.target.host", host),
		attribute.Stringer("traceroute.options.method", opts.Method),
		attribute.Int("traceroute.options.max_hops", opts.MaxHops),
		attribute.Int("traceroute.options.queries", opts.Queries),
		attribute.Stringer("traceroute.options.wait", opts.Wait),
	))
	defer sp.End()
	log := logger.FromContext(ctx).With("host", host, "method", opts.Method)
	ctx = logger.IntoContext(ctx, log)

	target, err := c.resolve(ctx, host, opts)
	if err != nil {
		return nil, wrapError(ctx, err, "failed to resolve %s", host)
	}
	sp.SetAttributes(attribute.Stringer("traceroute.target.address", target.Addr))

	s, err := c.openSession(ctx, target.Addr, opts)
	if err != nil {
		return nil, wrapError(ctx, err, "failed to open %s probe session", opts.Method)
	}
	defer func() {
		if cErr := s.Close(); cErr != nil {
			log.WarnContext(ctx, "Failed to close probe session", "error", cErr)
		}
	}()

	c.reporter.Start(ctx, target, opts)
	log.DebugContext(ctx, "Starting traceroute", "target", target.Addr)

	t := &terminal{
		target: target,
		opts:   opts,
		hopper: &hopper{
			generator:  s.generator,
			correlator: newCorrelator(c.now),
			captures:   s.captures,
			opts:       opts,
			metrics:    c.metrics,
		},
		namer:    c.namer,
		reporter: c.reporter,
		tracer:   tracer,
	}
	res := t.walk(ctx)

	c.metrics.setHops(host, len(res.Hops))
	sp.SetAttributes(
		attribute.Bool("traceroute.target.reached", res.Reached),
		attribute.Int("traceroute.target.hops", len(res.Hops)),
	)
	c.reporter.Finish(ctx, res)
	return res, nil
}

// resolve looks up the target address, retrying as configured.
// Any failure is returned as a [*ResolutionError].
func (c *client) resolve(ctx context.Context, host string, opts *Options) (Target, error) {
	var addr netip.Addr
	lookup := helper.Retry(func(ctx context.Context) error {
		a, err := c.resolver.LookupIP(ctx, host)
		if err != nil {
			return err
		}
		addr = a
		return nil
	}, opts.Resolve)

	if err := lookup(ctx); err != nil {
		return Target{}, &ResolutionError{Host: host, Err: err}
	}
	return Target{Host: host, Addr: addr}, nil
}

// nopReporter discards all progress.
type nopReporter struct{}

func (nopReporter) Start(context.Context, Target, *Options) {}
func (nopReporter) Hop(context.Context, Hop)                {}
func (nopReporter) Finish(context.Context, *Result)         {}
