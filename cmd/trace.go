// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/traceprobe/internal/logger"
	"github.com/telekom/traceprobe/internal/traceroute"
	"github.com/telekom/traceprobe/pkg"
	"github.com/telekom/traceprobe/pkg/config"
	"github.com/telekom/traceprobe/pkg/output"
	"github.com/telekom/traceprobe/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultResolveRetries = 2
	defaultResolveDelay   = 200 * time.Millisecond
	shutdownTimeout       = 5 * time.Second
)

// clientFactory creates the traceroute client of a run
type clientFactory func(reporter traceroute.Reporter, registerer prometheus.Registerer) (traceroute.Client, error)

func newClient(reporter traceroute.Reporter, registerer prometheus.Registerer) (traceroute.Client, error) {
	return traceroute.NewClient(reporter, traceroute.WithRegisterer(registerer))
}

// NewCmdTrace creates the trace command
func NewCmdTrace() *cobra.Command {
	return newCmdTrace(newClient)
}

func newCmdTrace(factory clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <host>",
		Short: "Trace the network path to a host",
		Long: "Sends TTL limited UDP, TCP or ICMP probes to the host and prints one line per hop\n" +
			"until the host answers or the maximum number of hops is reached.\n" +
			"TCP and ICMP probes need the CAP_NET_RAW capability.",
		Args: cobra.ExactArgs(1),
		RunE: run(factory),
	}

	NewFlag("hops", "hops").Shorthand("m").Int().Bind(cmd, traceroute.DefaultMaxHops, "maximum number of hops to probe")
	NewFlag("firstTTL", "first-ttl").Shorthand("f").Int().Bind(cmd, 1, "TTL of the first probed hop")
	NewFlag("queries", "queries").Shorthand("q").Int().Bind(cmd, traceroute.DefaultQueries, "number of probes per hop")
	NewFlag("port", "port").Shorthand("p").Int().Bind(cmd, traceroute.DefaultPort, "base destination port (UDP, TCP) or sequence number (ICMP)")
	NewFlag("wait", "wait").Shorthand("w").Float64().Bind(cmd, traceroute.DefaultWait.Seconds(), "seconds to wait for the response of a probe")
	NewFlag("method", "method").Shorthand("M").String().Bind(cmd, traceroute.MethodUDP.String(), "probe method: udp, tcp or icmp")
	NewFlag("numeric", "numeric").Shorthand("n").Bool().Bind(cmd, false, "print hop addresses without reverse lookup")
	NewFlag("output", "output").Shorthand("o").String().Bind(cmd, output.FormatText.String(), "output format: text, json or yaml")
	NewFlag("metricsFile", "metrics-file").String().Bind(cmd, "", "write the prometheus metrics of the run to this file")
	NewFlag("resolve.retry.count", "resolve.retry.count").Int().Bind(cmd, defaultResolveRetries, "retries of the target name resolution")
	NewFlag("resolve.retry.delay", "resolve.retry.delay").Duration().Bind(cmd, defaultResolveDelay, "initial backoff between resolution retries")
	NewFlag("telemetry.enabled", "telemetry.enabled").Bool().Bind(cmd, false, "export the traces of the run")
	NewFlag("telemetry.exporter", "telemetry.exporter").String().Bind(cmd, "", "trace exporter: http, grpc, stdout or noop")
	NewFlag("telemetry.url", "telemetry.url").String().Bind(cmd, "", "url of the trace collector")
	NewFlag("telemetry.token", "telemetry.token").String().Bind(cmd, "", "bearer token for the trace collector")
	NewFlag("telemetry.tls.enabled", "telemetry.tls.enabled").Bool().Bind(cmd, false, "use tls for the trace collector")
	NewFlag("telemetry.tls.certPath", "telemetry.tls.cert-path").String().Bind(cmd, "", "ca certificate of the trace collector")

	return cmd
}

// run is the entry point of the trace command
func run(factory clientFactory) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		host := args[0]
		cfg := &config.Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		ctx, cancel := logger.NewContextWithLogger(cmd.Context())
		defer cancel()
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logger.FromContext(ctx)

		if err := cfg.Validate(ctx); err != nil {
			return fmt.Errorf("error while validating the config: %w", err)
		}

		tel := telemetry.New(cfg.Telemetry, pkg.Version)
		if err := tel.InitTracing(ctx); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer scancel()
			if err := tel.Shutdown(sctx); err != nil {
				log.WarnContext(ctx, "Failed to shutdown telemetry", "error", err)
			}
		}()

		reporter, err := output.New(cfg.OutputFormat(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		client, err := factory(reporter, tel.GetRegistry())
		if err != nil {
			return fmt.Errorf("failed to create traceroute client: %w", err)
		}
		if err = telemetry.RegisterRunInfo(tel.GetRegistry(), pkg.Version, host, cfg.Method); err != nil {
			return fmt.Errorf("failed to register run info: %w", err)
		}

		res, err := runTraced(ctx, client, host, cfg.Options())
		if err != nil {
			var rErr *traceroute.ResolutionError
			if errors.As(err, &rErr) {
				return rErr
			}
			return err
		}
		log.DebugContext(ctx, "Traceroute finished", "reached", res.Reached, "hops", len(res.Hops))

		if cfg.HasMetricsFile() {
			if err = tel.WriteTextfile(ctx, cfg.MetricsFile); err != nil {
				return err
			}
		}
		return nil
	}
}

// runTraced runs the client below the root span of the run
func runTraced(ctx context.Context, client traceroute.Client, host string, opts *traceroute.Options) (*traceroute.Result, error) {
	ctx, sp := otel.Tracer("traceprobe").Start(ctx, "trace", trace.WithAttributes(
		attribute.String("traceprobe.host", host),
	))
	defer sp.End()

	res, err := client.Run(ctx, host, opts)
	if err != nil {
		sp.SetStatus(codes.Error, err.Error())
		sp.RecordError(err)
		return nil, err
	}
	sp.SetAttributes(attribute.Bool("traceprobe.reached", res.Reached))
	return res, nil
}
