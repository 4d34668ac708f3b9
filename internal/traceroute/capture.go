// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net"
	"time"

	"github.com/google/gopacket/layers"
)

// mtuSize is the read buffer size of raw captures.
const mtuSize = 1500

// capture is the receive side of a session. It reads one packet at a time.
//
//go:generate go tool moq -out capture_moq.go . capture
type capture interface {
	// Read blocks until the next packet arrives or the read deadline passes.
	// ok is false for packets that are not a response to a probe.
	Read() (resp ProbeResponse, ok bool, err error)
	// SetReadDeadline sets the deadline for pending and future reads.
	// A zero value disables the deadline.
	SetReadDeadline(t time.Time) error
}

// packetReader is the read side of a [net.PacketConn].
type packetReader interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
}

var _ capture = (*rawCapture)(nil)

// rawCapture reads from a raw IPv4 socket and decodes every packet with a [Parser].
type rawCapture struct {
	conn   packetReader
	proto  layers.IPProtocol
	parser Parser
	buf    []byte
	now    func() time.Time
}

// newRawCapture creates a capture for packets of the given protocol read from conn.
func newRawCapture(conn packetReader, proto layers.IPProtocol, parser Parser) *rawCapture {
	return &rawCapture{
		conn:   conn,
		proto:  proto,
		parser: parser,
		buf:    make([]byte, mtuSize),
		now:    time.Now,
	}
}

func (c *rawCapture) Read() (ProbeResponse, bool, error) {
	n, src, err := c.conn.ReadFrom(c.buf)
	if err != nil {
		return ProbeResponse{}, false, err
	}
	receivedAt := c.now()

	from, ok := addrFromNet(src)
	if !ok {
		return ProbeResponse{}, false, nil
	}

	resp, ok := c.parser.Parse(c.proto, c.buf[:n], from)
	if !ok {
		return ProbeResponse{}, false, nil
	}
	resp.ReceivedAt = receivedAt
	return resp, true, nil
}

func (c *rawCapture) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}
