// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterRunInfo(t *testing.T) {
	registry := prometheus.NewRegistry()

	err := RegisterRunInfo(registry, "v1.2.3", "example.com", "icmp")
	if err != nil {
		t.Fatalf("RegisterRunInfo() error = %v", err)
	}

	metrics, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var found bool
	for _, mf := range metrics {
		if mf.GetName() != runInfoMetricName {
			continue
		}
		found = true
		if len(mf.GetMetric()) != 1 {
			t.Errorf("expected 1 metric, got %d", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			if m.GetGauge().GetValue() != 1 {
				t.Errorf("expected value 1, got %v", m.GetGauge().GetValue())
			}
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["version"] != "v1.2.3" || labels["target"] != "example.com" || labels["method"] != "icmp" {
				t.Errorf("unexpected labels: %v", labels)
			}
		}
	}
	if !found {
		t.Error("traceprobe_run_info metric not found in registry")
	}
}

func TestRegisterRunInfo_doubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	if err := RegisterRunInfo(registry, "", "a.example.com", "udp"); err != nil {
		t.Fatalf("first RegisterRunInfo() error = %v", err)
	}

	err := RegisterRunInfo(registry, "", "b.example.com", "tcp")
	if err == nil {
		t.Fatal("expected second RegisterRunInfo to return an error (duplicate collector)")
	}

	var alreadyErr prometheus.AlreadyRegisteredError
	if !errors.As(err, &alreadyErr) {
		t.Errorf("expected AlreadyRegisteredError, got %T: %v", err, err)
	}
}
