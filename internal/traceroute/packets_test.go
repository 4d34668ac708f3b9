// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

var testSource = netip.MustParseAddr("192.0.2.1")

func newIPv4Layer(src, dst netip.Addr, proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		TTL:      1,
		SrcIP:    src.AsSlice(),
		DstIP:    dst.AsSlice(),
		Protocol: proto,
	}
}

// serialize serializes the layers with lengths and checksums fixed.
func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

// icmpErrorFrame creates an ICMP error message quoting the original IP header and
// the first quoted bytes of the original transport header, as a router would.
// The frame starts at the ICMP header, like packets read from a raw socket.
func icmpErrorFrame(t *testing.T, typeCode layers.ICMPv4TypeCode, original []byte, quoted int) []byte {
	t.Helper()
	if len(original) > quoted {
		original = original[:quoted]
	}
	return serialize(t, &layers.ICMPv4{TypeCode: typeCode}, gopacket.Payload(original))
}

// udpProbePacket returns the IP packet of a UDP probe as it left the host.
func udpProbePacket(t *testing.T, dst netip.Addr, srcPort, dstPort uint16) []byte {
	t.Helper()
	ip := newIPv4Layer(testSource, dst, layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ip, udp, gopacket.Payload(make([]byte, udpPayloadLen)))
}

// ipPacket prepends an IP header to the wire bytes of a raw probe.
func ipPacket(t *testing.T, dst netip.Addr, proto layers.IPProtocol, wire []byte) []byte {
	t.Helper()
	return serialize(t, newIPv4Layer(testSource, dst, proto), gopacket.Payload(wire))
}

var (
	timeExceeded    = layers.CreateICMPv4TypeCode(layers.ICMPv4TypeTimeExceeded, layers.ICMPv4CodeTTLExceeded)
	portUnreachable = layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodePort)
	hostUnreachable = layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost)
)

// quoteLen is the part of the original packet routers are required to quote.
const quoteLen = 20 + 8
