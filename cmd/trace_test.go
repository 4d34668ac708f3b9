// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/traceprobe/internal/helper"
	"github.com/telekom/traceprobe/internal/traceroute"
	"github.com/telekom/traceprobe/pkg/config"
)

var testTarget = traceroute.Target{Host: "example.com", Addr: netip.MustParseAddr("192.0.2.10")}

// fakeFactory returns a factory whose client reports a one hop path through the reporter
func fakeFactory(t *testing.T, runErr error) (clientFactory, *traceroute.ClientMock) {
	t.Helper()
	mock := &traceroute.ClientMock{}
	factory := func(reporter traceroute.Reporter, _ prometheus.Registerer) (traceroute.Client, error) {
		mock.RunFunc = func(ctx context.Context, _ string, opts *traceroute.Options) (*traceroute.Result, error) {
			if runErr != nil {
				return nil, runErr
			}
			res := &traceroute.Result{
				Target:  testTarget,
				Method:  opts.Method,
				Reached: true,
				Hops: []traceroute.Hop{{
					TTL:      1,
					Reached:  true,
					Outcomes: []traceroute.Outcome{traceroute.ProbeResult{From: testTarget.Addr, RTT: time.Millisecond, Kind: traceroute.ReplyEcho}},
				}},
			}
			reporter.Start(ctx, testTarget, opts)
			reporter.Hop(ctx, res.Hops[0])
			reporter.Finish(ctx, res)
			return res, nil
		}
		return mock, nil
	}
	return factory, mock
}

func executeTrace(t *testing.T, factory clientFactory, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	root := NewCmdRoot("test")
	root.AddCommand(newCmdTrace(factory))

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"trace"}, args...))

	err := root.Execute()
	return stdout.String(), err
}

func TestTrace_Options(t *testing.T) {
	factory, mock := fakeFactory(t, nil)

	_, err := executeTrace(t, factory, "example.com",
		"-m", "5", "-f", "2", "-q", "2", "-p", "40000", "-w", "1.5", "-M", "icmp", "-n",
		"--resolve.retry.count", "3", "--resolve.retry.delay", "1s",
	)
	require.NoError(t, err)

	calls := mock.RunCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "example.com", calls[0].Host)

	want := &traceroute.Options{
		FirstTTL: 2,
		MaxHops:  5,
		Queries:  2,
		Port:     40000,
		Wait:     1500 * time.Millisecond,
		Method:   traceroute.MethodICMP,
		Numeric:  true,
		Resolve:  helper.RetryConfig{Count: 3, Delay: time.Second},
	}
	if diff := cmp.Diff(want, calls[0].Opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace_Defaults(t *testing.T) {
	factory, mock := fakeFactory(t, nil)

	out, err := executeTrace(t, factory, "example.com")
	require.NoError(t, err)

	calls := mock.RunCalls()
	require.Len(t, calls, 1)
	opts := calls[0].Opts
	assert.Equal(t, traceroute.DefaultMaxHops, opts.MaxHops)
	assert.Equal(t, traceroute.DefaultQueries, opts.Queries)
	assert.Equal(t, traceroute.DefaultPort, opts.Port)
	assert.Equal(t, traceroute.DefaultWait, opts.Wait)
	assert.Equal(t, traceroute.MethodUDP, opts.Method)
	assert.Equal(t, 1, opts.FirstTTL)

	assert.Equal(t,
		"traceprobe to example.com (192.0.2.10), 30 hops max, udp probes\n"+
			" 1  192.0.2.10 (192.0.2.10)  1.000 ms\n",
		out)
}

func TestTrace_Environment(t *testing.T) {
	factory, mock := fakeFactory(t, nil)
	t.Setenv("TRACEPROBE_QUERIES", "5")

	_, err := executeTrace(t, factory, "example.com")
	require.NoError(t, err)
	require.Len(t, mock.RunCalls(), 1)
	assert.Equal(t, 5, mock.RunCalls()[0].Opts.Queries)
}

func TestTrace_ConfigFile(t *testing.T) {
	factory, mock := fakeFactory(t, nil)
	path := filepath.Join(t.TempDir(), "traceprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hops: 12\nmethod: tcp\n"), 0o600))

	_, err := executeTrace(t, factory, "example.com", "--config", path)
	require.NoError(t, err)
	require.Len(t, mock.RunCalls(), 1)
	assert.Equal(t, 12, mock.RunCalls()[0].Opts.MaxHops)
	assert.Equal(t, traceroute.MethodTCP, mock.RunCalls()[0].Opts.Method)
}

func TestTrace_ResolutionFailure(t *testing.T) {
	resErr := &traceroute.ResolutionError{Host: "nonexistent.invalid", Err: errors.New("no such host")}
	factory, _ := fakeFactory(t, errors.Join(errors.New("failed to resolve"), resErr))

	out, err := executeTrace(t, factory, "nonexistent.invalid")
	require.Error(t, err)
	assert.Equal(t, "nonexistent.invalid: Temporary failure in name resolution", err.Error())
	assert.Empty(t, out, "no hop lines are printed")
}

func TestTrace_InvalidConfig(t *testing.T) {
	called := false
	factory := func(traceroute.Reporter, prometheus.Registerer) (traceroute.Client, error) {
		called = true
		return &traceroute.ClientMock{}, nil
	}

	_, err := executeTrace(t, factory, "example.com", "-M", "sctp")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.False(t, called, "no client is created for an invalid config")
}

func TestTrace_MissingHost(t *testing.T) {
	factory, mock := fakeFactory(t, nil)
	_, err := executeTrace(t, factory)
	assert.Error(t, err)
	assert.Empty(t, mock.RunCalls())
}

func TestTrace_JSONOutput(t *testing.T) {
	factory, _ := fakeFactory(t, nil)

	out, err := executeTrace(t, factory, "example.com", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"target": {"host": "example.com", "addr": "192.0.2.10"},
		"method": "udp",
		"hops": [{"ttl": 1, "reached": true, "probes": [{"index": 0, "addr": "192.0.2.10", "rtt": "1ms", "reply": "echo-reply"}]}],
		"reached": true
	}`, out)
}

func TestTrace_MetricsFile(t *testing.T) {
	factory, _ := fakeFactory(t, nil)
	path := filepath.Join(t.TempDir(), "traceprobe.prom")

	_, err := executeTrace(t, factory, "example.com", "--metrics-file", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path) // #nosec G304 // test file
	require.NoError(t, err)
	assert.Contains(t, string(b), "traceprobe_run_info{")
	assert.Contains(t, string(b), `target="example.com"`)
}
