// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/telekom/traceprobe/internal/logger"
	"github.com/telekom/traceprobe/internal/traceroute"
)

// placeholder is printed for a probe without a response
const placeholder = "*"

var _ traceroute.Reporter = (*textReporter)(nil)

// textReporter prints the classic traceroute lines
type textReporter struct {
	w io.Writer
}

func newTextReporter(w io.Writer) *textReporter {
	return &textReporter{w: w}
}

func (r *textReporter) Start(ctx context.Context, target traceroute.Target, opts *traceroute.Options) {
	r.printf(ctx, "traceprobe to %s (%s), %d hops max, %s probes\n", target.Host, target.Addr, opts.MaxHops, opts.Method)
}

func (r *textReporter) Hop(ctx context.Context, hop traceroute.Hop) {
	r.printf(ctx, "%s\n", formatHop(hop))
}

func (r *textReporter) Finish(context.Context, *traceroute.Result) {}

func (r *textReporter) printf(ctx context.Context, format string, args ...any) {
	if _, err := fmt.Fprintf(r.w, format, args...); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to write output", "error", err)
	}
}

// formatHop formats the ttl followed by one column per probe
func formatHop(hop traceroute.Hop) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%2d", hop.TTL)
	for _, o := range hop.Outcomes {
		b.WriteString("  ")
		switch v := o.(type) {
		case traceroute.ProbeResult:
			b.WriteString(v.String())
		default:
			b.WriteString(placeholder)
		}
	}
	return b.String()
}
