// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"
)

var (
	_ wire    = (*fakeNetwork)(nil)
	_ capture = (*fakeNetwork)(nil)
)

// testIdent is the local port of the sessions created by [fakeNetwork.session].
const testIdent = 40000

// sentProbe is a probe seen by the fake network.
type sentProbe struct {
	TTL int
	ID  ProbeID
}

// replyFunc decides how the network answers a probe. It returns false to drop it.
type replyFunc func(ttl int, id ProbeID) (ProbeResponse, bool)

// fakeNetwork simulates the path to a target for UDP probes. It is the wire
// the generator writes to and the capture the sniffer reads from.
type fakeNetwork struct {
	mu        sync.Mutex
	ttl       int
	sent      []sentProbe
	reply     replyFunc
	responses chan ProbeResponse
	deadline  time.Time
	wake      chan struct{}
	// hold delays delivery until release is called.
	hold    bool
	held    []ProbeResponse
	writeTo func(ttl int, id ProbeID) error
}

func newFakeNetwork(reply replyFunc) *fakeNetwork {
	return &fakeNetwork{
		reply:     reply,
		responses: make(chan ProbeResponse, 1024),
		wake:      make(chan struct{}),
	}
}

// routerAt returns the address of the router at the given distance.
func routerAt(ttl int) netip.Addr {
	return netip.AddrFrom4([4]byte{10, 0, 0, byte(ttl)}) // #nosec G115 // test hops are small
}

// pathTo answers like a path whose target is dist hops away and whose routers
// are [routerAt] each hop. Probes for which drop returns true are not answered.
func pathTo(target netip.Addr, dist int, drop func(ttl, index int) bool) replyFunc {
	enc := encoding{basePort: DefaultPort, queries: DefaultQueries}
	return func(ttl int, id ProbeID) (ProbeResponse, bool) {
		_, index, _ := enc.decode(id.Seq)
		if drop != nil && drop(ttl, index) {
			return ProbeResponse{}, false
		}
		if ttl >= dist {
			return ProbeResponse{ID: id, From: target, Kind: ReplyUnreachable, Code: icmpUnreachablePort}, true
		}
		return ProbeResponse{ID: id, From: routerAt(ttl), Kind: ReplyTimeExceeded}, true
	}
}

func (n *fakeNetwork) SetTTL(ttl int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ttl = ttl
	return nil
}

func (n *fakeNetwork) WriteTo(b []byte, dst net.Addr) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := ProbeID{Ident: testIdent, Seq: uint16(dst.(*net.UDPAddr).Port)} // #nosec G115 // ports are 16 bit
	if n.writeTo != nil {
		if err := n.writeTo(n.ttl, id); err != nil {
			return 0, err
		}
	}
	n.sent = append(n.sent, sentProbe{TTL: n.ttl, ID: id})

	if n.reply == nil {
		return len(b), nil
	}
	resp, ok := n.reply(n.ttl, id)
	if !ok {
		return len(b), nil
	}
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = time.Now()
	}
	if n.hold {
		n.held = append(n.held, resp)
		return len(b), nil
	}
	n.responses <- resp
	return len(b), nil
}

// release delivers the held responses in the given order of their index in the hold queue.
func (n *fakeNetwork) release(order ...int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, i := range order {
		n.responses <- n.held[i]
	}
	n.held = nil
}

func (n *fakeNetwork) Read() (ProbeResponse, bool, error) {
	for {
		n.mu.Lock()
		deadline, wake := n.deadline, n.wake
		n.mu.Unlock()

		var timeout <-chan time.Time
		var timer *time.Timer
		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return ProbeResponse{}, false, os.ErrDeadlineExceeded
			}
			timer = time.NewTimer(d)
			timeout = timer.C
		}

		select {
		case resp := <-n.responses:
			if timer != nil {
				timer.Stop()
			}
			return resp, true, nil
		case <-wake:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (n *fakeNetwork) SetReadDeadline(t time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deadline = t
	close(n.wake)
	n.wake = make(chan struct{})
	return nil
}

// sentProbes returns the probes written so far.
func (n *fakeNetwork) sentProbes() []sentProbe {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentProbe(nil), n.sent...)
}

// session returns a session factory that hands out the fake network and counts its calls.
func (n *fakeNetwork) session(calls *int) sessionFactory {
	return func(_ context.Context, target netip.Addr, opts *Options) (*session, error) {
		if calls != nil {
			*calls++
		}
		return &session{
			generator: newGenerator(MethodUDP, opts, testIdent, netip.Addr{}, target, n),
			captures:  []capture{n},
		}, nil
	}
}
