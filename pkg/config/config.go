// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/telekom/traceprobe/internal/helper"
	"github.com/telekom/traceprobe/internal/traceroute"
	"github.com/telekom/traceprobe/pkg/output"
	"github.com/telekom/traceprobe/pkg/telemetry"
)

// Config is the startup configuration of a traceprobe run.
// It is filled from flags, TRACEPROBE_* environment variables and the config file.
type Config struct {
	// Hops is the maximum TTL to probe
	Hops int `yaml:"hops" mapstructure:"hops"`
	// FirstTTL is the TTL of the first probed hop
	FirstTTL int `yaml:"firstTTL" mapstructure:"firstTTL"`
	// Queries is the number of probes per hop
	Queries int `yaml:"queries" mapstructure:"queries"`
	// Port is the base destination port or ICMP sequence
	Port int `yaml:"port" mapstructure:"port"`
	// Wait is the time in seconds to wait for each probe response
	Wait float64 `yaml:"wait" mapstructure:"wait"`
	// Method is the probe transport (udp, tcp or icmp)
	Method string `yaml:"method" mapstructure:"method"`
	// Numeric disables the reverse lookup of hop addresses
	Numeric bool `yaml:"numeric" mapstructure:"numeric"`
	// Output is the format of the printed result
	Output string `yaml:"output" mapstructure:"output"`
	// MetricsFile is the path the prometheus metrics are written to after the run
	MetricsFile string `yaml:"metricsFile" mapstructure:"metricsFile"`
	// Resolve is the configuration of the target name resolution
	Resolve ResolveConfig `yaml:"resolve" mapstructure:"resolve"`
	// Telemetry is the configuration for the telemetry
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ResolveConfig is the configuration of the target name resolution
type ResolveConfig struct {
	Retry helper.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// HasTelemetry returns true if the config has telemetry enabled
func (c *Config) HasTelemetry() bool {
	return c.Telemetry.Enabled
}

// HasMetricsFile returns true if the metrics should be written to a file
func (c *Config) HasMetricsFile() bool {
	return c.MetricsFile != ""
}

// WaitDuration returns the per probe wait time
func (c *Config) WaitDuration() time.Duration {
	return time.Duration(c.Wait * float64(time.Second))
}

// OutputFormat returns the output format, defaulting to text
func (c *Config) OutputFormat() output.Format {
	if c.Output == "" {
		return output.FormatText
	}
	return output.Format(c.Output)
}

// Options returns the traceroute options of the run
func (c *Config) Options() *traceroute.Options {
	return &traceroute.Options{
		FirstTTL: c.FirstTTL,
		MaxHops:  c.Hops,
		Queries:  c.Queries,
		Port:     c.Port,
		Wait:     c.WaitDuration(),
		Method:   traceroute.Method(c.Method),
		Numeric:  c.Numeric,
		Resolve:  c.Resolve.Retry,
	}
}
