// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	// udpPayloadLen is the payload size of UDP probes, giving the classic 60 byte packets.
	udpPayloadLen = 32
	// tcpWindow is the advertised window of TCP SYN probes.
	tcpWindow = 1024
)

// wire is the send side of a probe socket.
//
//go:generate go tool moq -out wire_moq.go . wire
type wire interface {
	// SetTTL sets the hop limit of the packets written afterwards.
	SetTTL(ttl int) error
	// WriteTo writes a single packet to the destination.
	WriteTo(b []byte, dst net.Addr) (int, error)
}

// encoding maps a (ttl, query index) pair to the 16 bit key carried by
// a probe and back.
type encoding struct {
	basePort int
	queries  int
}

// key returns basePort + (ttl-1)*queries + index. Keys increase monotonically
// over the walk and are never reused within a run.
func (e encoding) key(ttl, index int) uint16 {
	return uint16(e.basePort + (ttl-1)*e.queries + index) // #nosec G115 // range checked by Options.Validate
}

// decode is the inverse of key.
func (e encoding) decode(key uint16) (ttl, index int, ok bool) {
	offset := int(key) - e.basePort
	if offset < 0 || e.queries <= 0 {
		return 0, 0, false
	}
	return offset/e.queries + 1, offset % e.queries, true
}

// Generator builds probes for a session and puts them on the wire.
type Generator struct {
	mu     sync.Mutex
	method Method
	enc    encoding
	// ident is the local source port (UDP/TCP) or the echo identifier (ICMP).
	ident uint16
	// src is the local address; only used for the TCP checksum.
	src    netip.Addr
	target netip.Addr
	wire   wire
}

// newGenerator creates a [Generator] writing to w.
func newGenerator(method Method, opts *Options, ident uint16, src, target netip.Addr, w wire) *Generator {
	return &Generator{
		method: method,
		enc:    encoding{basePort: opts.Port, queries: opts.Queries},
		ident:  ident,
		src:    src,
		target: target,
		wire:   w,
	}
}

// ID returns the id of the probe for the given ttl and query index.
func (g *Generator) ID(ttl, index int) ProbeID {
	return ProbeID{Ident: g.ident, Seq: g.enc.key(ttl, index)}
}

// Build constructs the probe for the given ttl and query index.
// It does not touch the network.
func (g *Generator) Build(ttl, index int) (Probe, error) {
	id := g.ID(ttl, index)
	p := Probe{
		ID:     id,
		TTL:    ttl,
		Index:  index,
		Method: g.method,
	}

	switch g.method {
	case MethodUDP:
		p.Dst = &net.UDPAddr{IP: g.target.AsSlice(), Port: int(id.Seq)}
		p.Wire = make([]byte, udpPayloadLen)
	case MethodTCP:
		b, err := g.buildSYN(id)
		if err != nil {
			return Probe{}, fmt.Errorf("failed to build TCP probe: %w", err)
		}
		p.Dst = &net.IPAddr{IP: g.target.AsSlice()}
		p.Wire = b
	case MethodICMP:
		b, err := g.buildEcho(id)
		if err != nil {
			return Probe{}, fmt.Errorf("failed to build ICMP probe: %w", err)
		}
		p.Dst = &net.IPAddr{IP: g.target.AsSlice()}
		p.Wire = b
	default:
		return Probe{}, fmt.Errorf("unsupported probe method: %s", g.method)
	}
	return p, nil
}

// Transmit sets the hop limit to the probe's ttl and writes it.
// Sends are serialized so the ttl of one probe never leaks into another.
func (g *Generator) Transmit(p Probe) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.wire.SetTTL(p.TTL); err != nil {
		return fmt.Errorf("failed to set ttl %d: %w", p.TTL, err)
	}
	if _, err := g.wire.WriteTo(p.Wire, p.Dst); err != nil {
		return fmt.Errorf("failed to send probe %s: %w", p.ID, err)
	}
	return nil
}

// buildSYN serializes a TCP SYN segment from the session port to the probe port.
// The kernel prepends the IP header.
func (g *Generator) buildSYN(id ProbeID) ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		SrcIP:    g.src.AsSlice(),
		DstIP:    g.target.AsSlice(),
		Protocol: layers.IPProtocolTCP,
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(id.Ident),
		DstPort: layers.TCPPort(id.Seq),
		Seq:     uint32(id.Ident)<<16 | uint32(id.Seq),
		SYN:     true,
		Window:  tcpWindow,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, tcp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildEcho marshals an ICMP echo request carrying the probe id.
func (g *Generator) buildEcho(id ProbeID) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(id.Ident),
			Seq:  int(id.Seq),
			Data: make([]byte, udpPayloadLen),
		},
	}
	return msg.Marshal(nil)
}
