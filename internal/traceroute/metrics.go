// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics defines the metric collectors of a traceroute run
type metrics struct {
	sent     *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	rtt      *prometheus.HistogramVec
	hops     *prometheus.GaugeVec
	packets  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// newMetrics initializes the metric collectors of the traceroute
func newMetrics() *metrics {
	return &metrics{
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traceprobe_probes_sent_total",
				Help: "Total number of probes put on the wire.",
			},
			[]string{"method"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traceprobe_probe_outcomes_total",
				Help: "Total number of probe outcomes by kind.",
			},
			[]string{"method", "outcome"},
		),
		rtt: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traceprobe_probe_rtt_seconds",
				Help:    "Histogram of probe round trip times in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"method"},
		),
		hops: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traceprobe_hops",
				Help: "Number of hops of the last path to the target.",
			},
			[]string{"target"},
		),
		packets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traceprobe_captured_packets_total",
				Help: "Total number of captured packets by whether they matched a probe.",
			},
			[]string{"match"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traceprobe_capture_failures_total",
				Help: "Total number of hop windows whose capture failed.",
			},
			[]string{"method"},
		),
	}
}

// GetCollectors returns all metric collectors
func (m *metrics) GetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.sent,
		m.outcomes,
		m.rtt,
		m.hops,
		m.packets,
		m.failures,
	}
}

// register adds the collectors to the registerer. A nil registerer is ignored.
func (m *metrics) register(r prometheus.Registerer) error {
	if r == nil {
		return nil
	}
	for _, c := range m.GetCollectors() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *metrics) probeSent(method Method) {
	m.sent.WithLabelValues(method.String()).Inc()
}

// observe records the outcome of a single probe.
func (m *metrics) observe(method Method, o Outcome) {
	switch v := o.(type) {
	case ProbeResult:
		m.outcomes.WithLabelValues(method.String(), v.Kind.String()).Inc()
		m.rtt.WithLabelValues(method.String()).Observe(v.RTT.Seconds())
	case *ProbeError:
		m.outcomes.WithLabelValues(method.String(), v.Kind.String()).Inc()
	}
}

func (m *metrics) packet(matched bool) {
	label := "ignored"
	if matched {
		label = "matched"
	}
	m.packets.WithLabelValues(label).Inc()
}

func (m *metrics) captureFailed(method Method) {
	m.failures.WithLabelValues(method.String()).Inc()
}

func (m *metrics) setHops(target string, n int) {
	m.hops.WithLabelValues(target).Set(float64(n))
}
