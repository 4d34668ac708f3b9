// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/telekom/traceprobe/internal/logger"
	"github.com/telekom/traceprobe/internal/traceroute"
	"gopkg.in/yaml.v3"
)

type encodeFunc func(w io.Writer, res *traceroute.Result) error

var _ traceroute.Reporter = (*documentReporter)(nil)

// documentReporter writes the whole result once the run is finished
type documentReporter struct {
	w      io.Writer
	encode encodeFunc
}

func newDocumentReporter(w io.Writer, encode encodeFunc) *documentReporter {
	return &documentReporter{w: w, encode: encode}
}

func (r *documentReporter) Start(ctx context.Context, target traceroute.Target, _ *traceroute.Options) {
	logger.FromContext(ctx).DebugContext(ctx, "Tracing route", "target", target.String())
}

func (r *documentReporter) Hop(ctx context.Context, hop traceroute.Hop) {
	logger.FromContext(ctx).DebugContext(ctx, "Hop done", "ttl", hop.TTL, "reached", hop.Reached)
}

func (r *documentReporter) Finish(ctx context.Context, res *traceroute.Result) {
	if err := r.encode(r.w, res); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to write output", "error", err)
	}
}

func encodeJSON(w io.Writer, res *traceroute.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func encodeYAML(w io.Writer, res *traceroute.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}
