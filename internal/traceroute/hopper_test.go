// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHopper(network *fakeNetwork, opts *Options) *hopper {
	return &hopper{
		generator:  newGenerator(MethodUDP, opts, testIdent, testSource, testTarget, network),
		correlator: newCorrelator(nil),
		captures:   []capture{network},
		opts:       opts,
		metrics:    newMetrics(),
	}
}

func TestHopper_OutcomesInIndexOrder(t *testing.T) {
	network := newFakeNetwork(func(ttl int, id ProbeID) (ProbeResponse, bool) {
		return ProbeResponse{ID: id, From: routerAt(ttl), Kind: ReplyTimeExceeded}, true
	})
	network.hold = true

	opts := testOptions(DefaultMaxHops, time.Second)
	h := newTestHopper(network, opts)

	w := h.probe(t.Context(), 4)
	require.Len(t, w.pending, 3)
	network.release(2, 0, 1)
	hop := h.await(t.Context(), w)

	assert.Equal(t, 4, hop.TTL)
	require.Len(t, hop.Outcomes, 3)
	for i, o := range hop.Outcomes {
		r, ok := o.(ProbeResult)
		require.True(t, ok, "outcome %d is %T", i, o)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, h.generator.ID(4, i), r.ID)
		assert.Equal(t, routerAt(4), r.From)
	}
}

func TestHopper_RTTStartsAfterSend(t *testing.T) {
	clock := newFakeClock()
	network := newFakeNetwork(func(ttl int, id ProbeID) (ProbeResponse, bool) {
		return ProbeResponse{
			ID:         id,
			From:       routerAt(ttl),
			Kind:       ReplyTimeExceeded,
			ReceivedAt: clock.Now().Add(5 * time.Millisecond),
		}, true
	})
	// A slow socket write must not count towards the rtt.
	network.writeTo = func(int, ProbeID) error {
		clock.Advance(30 * time.Millisecond)
		return nil
	}

	opts := testOptions(DefaultMaxHops, time.Second)
	h := newTestHopper(network, opts)
	h.correlator = newCorrelator(clock.Now)

	hop := h.await(t.Context(), h.probe(t.Context(), 2))
	require.Len(t, hop.Outcomes, 3)
	for i, o := range hop.Outcomes {
		r, ok := o.(ProbeResult)
		require.True(t, ok, "outcome %d is %T", i, o)
		assert.Equal(t, 5*time.Millisecond, r.RTT)
	}
}

func TestHopper_TransmitFailure(t *testing.T) {
	errSend := errors.New("sendto: network is unreachable")
	network := newFakeNetwork(func(ttl int, id ProbeID) (ProbeResponse, bool) {
		return ProbeResponse{ID: id, From: routerAt(ttl), Kind: ReplyTimeExceeded}, true
	})
	network.writeTo = func(_ int, id ProbeID) error {
		if id.Seq == DefaultPort+1 {
			return errSend
		}
		return nil
	}

	opts := testOptions(DefaultMaxHops, time.Second)
	h := newTestHopper(network, opts)

	w := h.probe(t.Context(), 1)
	assert.Len(t, w.pending, 2)
	hop := h.await(t.Context(), w)

	require.Len(t, hop.Outcomes, 3)
	perr, ok := hop.Outcomes[1].(*ProbeError)
	require.True(t, ok)
	assert.Equal(t, ErrorIO, perr.Kind)
	assert.ErrorIs(t, perr, errSend)

	for _, i := range []int{0, 2} {
		_, ok := hop.Outcomes[i].(ProbeResult)
		assert.True(t, ok, "outcome %d should be a result", i)
	}
	assert.Equal(t, 2, h.correlator.Len(), "the failed probe must not stay registered")
	assert.Equal(t, float64(2), testutil.ToFloat64(h.metrics.sent.WithLabelValues("udp")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.outcomes.WithLabelValues("udp", "io")))
}

func TestHopper_CaptureFailure(t *testing.T) {
	network := newFakeNetwork(nil)
	opts := testOptions(DefaultMaxHops, 20*time.Millisecond)
	h := newTestHopper(network, opts)
	h.captures = []capture{scriptedCapture(func() (ProbeResponse, bool, error) {
		return ProbeResponse{}, false, errors.New("recvfrom: connection refused")
	})}

	start := time.Now()
	hop := h.await(t.Context(), h.probe(t.Context(), 1))

	assert.GreaterOrEqual(t, time.Since(start), opts.Wait, "pending probes fall back to their deadline")
	for _, o := range hop.Outcomes {
		perr, ok := o.(*ProbeError)
		require.True(t, ok)
		assert.Equal(t, ErrorTimeout, perr.Kind)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.failures.WithLabelValues("udp")))
}

func TestHopper_LateResponseIsIgnored(t *testing.T) {
	network := newFakeNetwork(func(ttl int, id ProbeID) (ProbeResponse, bool) {
		return ProbeResponse{ID: id, From: routerAt(ttl), Kind: ReplyTimeExceeded}, true
	})
	network.hold = true

	opts := testOptions(DefaultMaxHops, 10*time.Millisecond)
	h := newTestHopper(network, opts)

	hop := h.await(t.Context(), h.probe(t.Context(), 1))
	for _, o := range hop.Outcomes {
		_, ok := o.(*ProbeError)
		assert.True(t, ok)
	}

	// The responses of the first hop arrive while the second one is probed.
	network.release(0, 1, 2)
	network.hold = false
	second := h.await(t.Context(), h.probe(t.Context(), 2))
	for _, o := range second.Outcomes {
		r, ok := o.(ProbeResult)
		require.True(t, ok)
		assert.Equal(t, 2, r.TTL)
		assert.Equal(t, routerAt(2), r.From)
	}
	for _, o := range hop.Outcomes {
		_, ok := o.(*ProbeError)
		assert.True(t, ok, "a stale response must not change a reported hop")
	}
}
