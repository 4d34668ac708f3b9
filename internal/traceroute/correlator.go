// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// completableProbe is a sent probe waiting for its response.
// The result is written at most once, either by a match or by expiry.
type completableProbe struct {
	probe Probe
	// sentAt is provisional until the probe is marked as sent.
	sentAt     time.Time
	receivedAt time.Time
	result     *ProbeResult
	// expired is set once the deadline has passed without a response.
	// Responses arriving afterwards are stale and ignored.
	expired bool
	done    chan struct{}
}

// correlator maps responses to the probes they answer.
// It is shared between the sniffer, which completes probes,
// and the orchestrator, which registers and awaits them.
type correlator struct {
	mu      sync.Mutex
	pending map[ProbeID]*completableProbe
	now     func() time.Time
}

func newCorrelator(now func() time.Time) *correlator {
	if now == nil {
		now = time.Now
	}
	return &correlator{
		pending: make(map[ProbeID]*completableProbe),
		now:     now,
	}
}

// Register adds a probe that is about to be sent. Its send time is stamped
// provisionally and replaced by [correlator.Sent].
// Registering an id twice is an error.
func (c *correlator) Register(p Probe) (*completableProbe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[p.ID]; ok {
		return nil, fmt.Errorf("%w: %s", errDuplicateProbe, p.ID)
	}
	cp := &completableProbe{
		probe:  p,
		sentAt: c.now(),
		done:   make(chan struct{}),
	}
	c.pending[p.ID] = cp
	return cp, nil
}

// Sent stamps the send time of a probe once it left the socket. A response
// that was matched before, which happens on fast paths, gets its rtt
// recomputed against the new stamp.
func (c *correlator) Sent(id ProbeID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, ok := c.pending[id]
	if !ok {
		return
	}
	cp.sentAt = c.now()
	if cp.result != nil {
		cp.result.RTT = max(cp.receivedAt.Sub(cp.sentAt), 0)
	}
}

// Discard removes a registered probe that could not be sent.
func (c *correlator) Discard(id ProbeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Complete matches a response to its probe. The first match fills the probe
// and returns its result. Later matches return the stored result unchanged.
// Responses for unknown or expired probes return false.
func (c *correlator) Complete(resp ProbeResponse) (ProbeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, ok := c.pending[resp.ID]
	if !ok || cp.expired {
		return ProbeResult{}, false
	}
	if cp.result != nil {
		return *cp.result, true
	}

	receivedAt := resp.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = c.now()
	}
	cp.receivedAt = receivedAt
	cp.result = &ProbeResult{
		ID:    cp.probe.ID,
		TTL:   cp.probe.TTL,
		Index: cp.probe.Index,
		From:  resp.From,
		RTT:   max(receivedAt.Sub(cp.sentAt), 0),
		Kind:  resp.Kind,
		Code:  resp.Code,
	}
	close(cp.done)
	return *cp.result, true
}

// Await blocks until the probe is completed or the deadline passes.
// On expiry the probe is marked stale and a timeout [*ProbeError] is returned.
func (c *correlator) Await(ctx context.Context, id ProbeID, deadline time.Time) (ProbeResult, error) {
	c.mu.Lock()
	cp, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return ProbeResult{}, fmt.Errorf("probe %s is not registered", id)
	}
	perr := func(kind ErrorKind, cause error) *ProbeError {
		return &ProbeError{Kind: kind, TTL: cp.probe.TTL, Index: cp.probe.Index, Cause: cause}
	}

	timer := time.NewTimer(max(deadline.Sub(c.now()), 0))
	defer timer.Stop()

	select {
	case <-cp.done:
	case <-timer.C:
	case <-ctx.Done():
		return ProbeResult{}, perr(ErrorIO, ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A response may have completed the probe while the timer fired.
	if cp.result != nil {
		return *cp.result, nil
	}
	cp.expired = true
	return ProbeResult{}, perr(ErrorTimeout, nil)
}

// Len returns the number of registered probes.
func (c *correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
