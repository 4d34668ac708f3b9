// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	runInfoMetricName = "traceprobe_run_info"
	runInfoHelp       = "Metadata of the traceprobe run. Set to 1 once per run to join the probe metrics with the build and target."
)

// RegisterRunInfo registers the traceprobe_run_info info-style metric on the given registry.
// It sets the gauge to 1 with labels version, target and method.
// An empty version is allowed for development builds.
func RegisterRunInfo(registry prometheus.Registerer, version, target, method string) error {
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: runInfoMetricName,
			Help: runInfoHelp,
		},
		[]string{"version", "target", "method"},
	)
	info.WithLabelValues(version, target, method).Set(1)
	return registry.Register(info)
}
