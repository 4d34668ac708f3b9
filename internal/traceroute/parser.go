// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/binary"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ICMP codes for Destination Unreachable messages.
// For more information, see:
// https://www.iana.org/assignments/icmp-parameters/icmp-parameters.xhtml#icmp-parameters-codes-3
const (
	icmpUnreachableNet             = 0
	icmpUnreachableHost            = 1
	icmpUnreachableProtocol        = 2
	icmpUnreachablePort            = 3
	icmpUnreachableFragNeeded      = 4
	icmpUnreachableSourceRoute     = 5
	icmpUnreachableAdminProhibited = 13
)

// transportPortsLen is the part of a quoted transport header that holds
// the source and destination port. Routers only have to quote 8 bytes,
// so a quoted TCP header is usually truncated.
const transportPortsLen = 4

// Parser decodes captured packets into probe responses.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	// target is the destination of the run. Quoted packets that were not
	// sent to it and direct replies that do not come from it are ignored.
	target netip.Addr
}

// NewParser creates a [Parser] for a run to the given target.
func NewParser(target netip.Addr) Parser {
	return Parser{target: target}
}

// Parse decodes one packet read from a raw socket of the given protocol.
// The packet starts at the transport header, the IP header has already been
// stripped by the kernel. It returns false for every packet that is not a
// response to a probe; unrelated traffic is expected and not an error.
func (p Parser) Parse(proto layers.IPProtocol, b []byte, from netip.Addr) (ProbeResponse, bool) {
	switch proto {
	case layers.IPProtocolICMPv4:
		return p.parseICMP(b, from)
	case layers.IPProtocolTCP:
		return p.parseTCP(b, from)
	default:
		return ProbeResponse{}, false
	}
}

// parseICMP handles time exceeded and destination unreachable messages, which
// quote the probe's headers, and echo replies sent directly by the target.
func (p Parser) parseICMP(b []byte, from netip.Addr) (ProbeResponse, bool) {
	var msg layers.ICMPv4
	if err := msg.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return ProbeResponse{}, false
	}

	resp := ProbeResponse{From: from, Code: msg.TypeCode.Code()}
	switch msg.TypeCode.Type() {
	case layers.ICMPv4TypeEchoReply:
		resp.Kind = ReplyEcho
		resp.ID = ProbeID{Ident: msg.Id, Seq: msg.Seq}
		return resp, true
	case layers.ICMPv4TypeTimeExceeded:
		resp.Kind = ReplyTimeExceeded
	case layers.ICMPv4TypeDestinationUnreachable:
		resp.Kind = ReplyUnreachable
	default:
		return ProbeResponse{}, false
	}

	id, ok := p.parseQuoted(msg.Payload)
	if !ok {
		return ProbeResponse{}, false
	}
	resp.ID = id
	return resp, true
}

// parseQuoted recovers the probe id from the original IP header and the
// first bytes of the original transport header quoted in an ICMP error.
func (p Parser) parseQuoted(b []byte) (ProbeID, bool) {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return ProbeID{}, false
	}
	dst, ok := netip.AddrFromSlice(ip.DstIP)
	if !ok || dst.Unmap() != p.target {
		return ProbeID{}, false
	}

	switch ip.Protocol {
	case layers.IPProtocolUDP:
		var udp layers.UDP
		if err := udp.DecodeFromBytes(ip.Payload, gopacket.NilDecodeFeedback); err != nil {
			return ProbeID{}, false
		}
		return ProbeID{Ident: uint16(udp.SrcPort), Seq: uint16(udp.DstPort)}, true
	case layers.IPProtocolTCP:
		if len(ip.Payload) < transportPortsLen {
			return ProbeID{}, false
		}
		return ProbeID{
			Ident: binary.BigEndian.Uint16(ip.Payload[0:2]),
			Seq:   binary.BigEndian.Uint16(ip.Payload[2:4]),
		}, true
	case layers.IPProtocolICMPv4:
		var echo layers.ICMPv4
		if err := echo.DecodeFromBytes(ip.Payload, gopacket.NilDecodeFeedback); err != nil {
			return ProbeID{}, false
		}
		if echo.TypeCode.Type() != layers.ICMPv4TypeEchoRequest {
			return ProbeID{}, false
		}
		return ProbeID{Ident: echo.Id, Seq: echo.Seq}, true
	default:
		return ProbeID{}, false
	}
}

// parseTCP handles the target's answer to a SYN probe. Both a SYN-ACK (port open)
// and a RST (port closed) mean the destination was reached.
func (p Parser) parseTCP(b []byte, from netip.Addr) (ProbeResponse, bool) {
	if from != p.target {
		return ProbeResponse{}, false
	}

	var tcp layers.TCP
	if err := tcp.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return ProbeResponse{}, false
	}
	if !(tcp.SYN && tcp.ACK) && !tcp.RST {
		return ProbeResponse{}, false
	}

	return ProbeResponse{
		// The reply mirrors the ports of the probe.
		ID:   ProbeID{Ident: uint16(tcp.DstPort), Seq: uint16(tcp.SrcPort)},
		From: from,
		Kind: ReplyTCP,
	}, true
}
