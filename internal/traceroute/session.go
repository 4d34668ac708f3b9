// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/netip"
	"syscall"

	"github.com/google/gopacket/layers"
	"github.com/telekom/traceprobe/internal/logger"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// session bundles the sockets of one run: the generator writing probes and
// the captures reading responses. Closing it releases every socket.
type session struct {
	generator *Generator
	captures  []capture
	closers   []io.Closer
}

// Close closes all sockets of the session.
func (s *session) Close() error {
	var err error
	for _, c := range s.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}

// sessionFactory opens the sockets for a run to the target.
type sessionFactory func(ctx context.Context, target netip.Addr, opts *Options) (*session, error)

// openSession opens the sockets needed for the probe method of the options.
func openSession(ctx context.Context, target netip.Addr, opts *Options) (*session, error) {
	switch opts.Method {
	case MethodUDP:
		return openUDPSession(ctx, target, opts)
	case MethodTCP:
		return openTCPSession(ctx, target, opts)
	case MethodICMP:
		return openICMPSession(ctx, target, opts)
	default:
		return nil, fmt.Errorf("unsupported probe method: %s", opts.Method)
	}
}

// ttlConn is a [net.PacketConn] whose unicast TTL can be changed between writes.
type ttlConn struct {
	net.PacketConn
	opt *ipv4.PacketConn
}

func newTTLConn(c net.PacketConn) ttlConn {
	return ttlConn{PacketConn: c, opt: ipv4.NewPacketConn(c)}
}

// newICMPTTLConn uses the ipv4 view the ICMP socket carries, it is not a [net.Conn].
func newICMPTTLConn(c *icmp.PacketConn) ttlConn {
	return ttlConn{PacketConn: c, opt: c.IPv4PacketConn()}
}

func (c ttlConn) SetTTL(ttl int) error {
	return c.opt.SetTTL(ttl)
}

// listenICMP opens the raw ICMP socket used to capture router responses.
// It returns [errRawSocketNotAvailable] if the process lacks NET_RAW capabilities.
func listenICMP() (*icmp.PacketConn, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err == nil {
		return conn, nil
	}
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		return nil, errRawSocketNotAvailable
	}
	return nil, fmt.Errorf("failed to create ICMP listener: %w", err)
}

// openUDPSession sends datagrams from an unprivileged UDP socket and captures
// router responses on a raw ICMP socket. Without NET_RAW it falls back to
// reading the ICMP errors from the socket error queue.
func openUDPSession(ctx context.Context, target netip.Addr, opts *Options) (s *session, err error) {
	icmpConn, err := listenICMP()
	if errors.Is(err, errRawSocketNotAvailable) {
		logger.FromContext(ctx).WarnContext(ctx, "Raw sockets not available, reading ICMP errors from the socket error queue")
		return openErrQueueSession(ctx, target, opts)
	}
	if err != nil {
		return nil, err
	}

	s = &session{closers: []io.Closer{icmpConn}}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	udpConn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP socket: %w", err)
	}
	s.closers = append(s.closers, udpConn)
	port := uint16(udpConn.LocalAddr().(*net.UDPAddr).Port) // #nosec G115 // ports are 16 bit

	s.captures = append(s.captures, newRawCapture(icmpConn, layers.IPProtocolICMPv4, NewParser(target)))
	s.generator = newGenerator(MethodUDP, opts, port, netip.Addr{}, target, newTTLConn(udpConn))
	return s, nil
}

// openErrQueueSession sends and captures on a single UDP socket with IP_RECVERR enabled.
func openErrQueueSession(ctx context.Context, target netip.Addr, opts *Options) (s *session, err error) {
	lc := net.ListenConfig{Control: setRecvErr}
	udpConn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP socket: %w", err)
	}
	s = &session{closers: []io.Closer{udpConn}}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	port := uint16(udpConn.LocalAddr().(*net.UDPAddr).Port) // #nosec G115 // ports are 16 bit

	c, err := newErrQueueCapture(udpConn, port, target)
	if err != nil {
		return nil, err
	}
	w, err := newRecvErrConn(udpConn)
	if err != nil {
		return nil, err
	}

	s.captures = append(s.captures, c)
	s.generator = newGenerator(MethodUDP, opts, port, netip.Addr{}, target, w)
	return s, nil
}

// setRecvErr enables IP_RECVERR so ICMP errors are queued on the socket.
func setRecvErr(_, _ string, c syscall.RawConn) error {
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_IP, unix.IP_RECVERR, 1)
	}); err != nil {
		return err
	}
	return opErr
}

// openTCPSession sends SYN segments through a raw TCP socket. Router responses are
// captured on a raw ICMP socket, the target's SYN-ACK or RST on the raw TCP socket.
func openTCPSession(_ context.Context, target netip.Addr, opts *Options) (s *session, err error) {
	s = &session{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	src, err := localAddrForHost(target, uint16(opts.Port)) // #nosec G115 // range checked by Options.Validate
	if err != nil {
		return nil, fmt.Errorf("failed to get local address for %s: %w", target, err)
	}

	// Holding the port keeps other sockets from using it while we probe.
	port, ln, err := reserveLocalPort()
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, ln)

	icmpConn, err := listenICMP()
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, icmpConn)

	tcpConn, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, errRawSocketNotAvailable
		}
		return nil, fmt.Errorf("failed to create raw TCP socket: %w", err)
	}
	s.closers = append(s.closers, tcpConn)

	parser := NewParser(target)
	s.captures = append(s.captures,
		newRawCapture(icmpConn, layers.IPProtocolICMPv4, parser),
		newRawCapture(tcpConn, layers.IPProtocolTCP, parser),
	)
	s.generator = newGenerator(MethodTCP, opts, port, src, target, newTTLConn(tcpConn))
	return s, nil
}

// openICMPSession sends echo requests through the raw ICMP socket it also captures on.
func openICMPSession(_ context.Context, target netip.Addr, opts *Options) (*session, error) {
	conn, err := listenICMP()
	if err != nil {
		return nil, err
	}

	ident := uint16(rand.N(math.MaxUint16 + 1)) // #nosec G404 G115 // math.rand is fine here, we're not doing encryption
	return &session{
		generator: newGenerator(MethodICMP, opts, ident, netip.Addr{}, target, newICMPTTLConn(conn)),
		captures:  []capture{newRawCapture(conn, layers.IPProtocolICMPv4, NewParser(target))},
		closers:   []io.Closer{conn},
	}, nil
}

// localAddrForHost returns the local address the kernel would use to reach the target.
// Dialing UDP does not send anything, it only selects a route.
func localAddrForHost(target netip.Addr, port uint16) (netip.Addr, error) {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(netip.AddrPortFrom(target, port)))
	if err != nil {
		return netip.Addr{}, err
	}
	defer func() { _ = conn.Close() }()

	return conn.LocalAddr().(*net.UDPAddr).AddrPort().Addr().Unmap(), nil
}

// reserveLocalPort reserves an ephemeral TCP port and returns both the
// listener and port because the listener should be held until the port
// is no longer in use.
func reserveLocalPort() (uint16, net.Listener, error) {
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reserve local TCP port: %w", err)
	}
	return uint16(ln.Addr().(*net.TCPAddr).Port), ln, nil // #nosec G115 // ports are 16 bit
}
