// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const (
	// oobBufSize is the size of the out-of-band buffer used for receiving extended error messages.
	oobBufSize = 512
	// dataBufSize is the size of the data buffer used for receiving the returned probe payload.
	dataBufSize = 64
	// minExtendedErrSize is the minimum size of the extended error structure
	// as defined in the Linux kernel documentation:
	// https://man7.org/linux/man-pages/man7/ip.7.html
	minExtendedErrSize = 16
	// offenderLen is the size of the sockaddr_in following the extended error.
	offenderLen = 8
	// maxPendingErrRetries bounds the sends retried after a pending socket error.
	maxPendingErrRetries = 3
)

var (
	_ capture = (*errQueueCapture)(nil)
	_ wire    = (*recvErrConn)(nil)
)

// errQueueCapture reads ICMP errors for UDP probes from the kernel error queue
// of the sending socket. It needs IP_RECVERR on the socket but no NET_RAW
// capabilities, which makes it the fallback when raw sockets are not available.
type errQueueCapture struct {
	conn    packetReader
	rawConn syscall.RawConn
	// ident is the local port of the socket, i.e. the ident of every probe sent from it.
	ident   uint16
	target  netip.Addr
	oobBuf  []byte
	dataBuf []byte
	now     func() time.Time
}

// newErrQueueCapture wraps a UDP connection with IP_RECVERR enabled.
func newErrQueueCapture(conn net.PacketConn, ident uint16, target netip.Addr) (*errQueueCapture, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("the provided connection does not implement syscall.Conn: %T", conn)
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("failed to get RawConn: %w", err)
	}

	return &errQueueCapture{
		conn:    conn,
		rawConn: rc,
		ident:   ident,
		target:  target,
		oobBuf:  make([]byte, oobBufSize),
		dataBuf: make([]byte, dataBufSize),
		now:     time.Now,
	}, nil
}

// Read performs a single Recvmsg(..., MSG_ERRQUEUE) and decodes one queued ICMP error.
// It waits for the socket to report an error while the error queue is empty.
func (c *errQueueCapture) Read() (ProbeResponse, bool, error) {
	var msg *socketMsg
	var opErr error
	err := c.rawConn.Read(func(fd uintptr) bool {
		msg, opErr = recvMsg(fd, c.dataBuf, c.oobBuf, unix.MSG_ERRQUEUE)
		return !errors.Is(opErr, unix.EAGAIN) && !errors.Is(opErr, unix.EWOULDBLOCK)
	})
	if err != nil {
		return ProbeResponse{}, false, err
	}
	if opErr != nil {
		return ProbeResponse{}, false, fmt.Errorf("failed to read socket error queue: %w", opErr)
	}
	receivedAt := c.now()

	resp, ok := c.parseExtendedErr(msg)
	if !ok {
		return ProbeResponse{}, false, nil
	}
	resp.ReceivedAt = receivedAt
	return resp, true, nil
}

func (c *errQueueCapture) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// socketMsg represents a message received from the socket error queue.
type socketMsg struct {
	// dst is the original destination of the probe that caused the error.
	dst *unix.SockaddrInet4
	// oob is the out-of-band data received with the message.
	// This contains the extended error information from the kernel.
	oob []byte
}

// unixRecvMsg is a wrapper around the [unix.Recvmsg] function.
// It allows us to mock the function in tests.
var unixRecvMsg = unix.Recvmsg

// recvMsg receives one message from the socket and keeps its destination and control data.
var recvMsg = func(fd uintptr, data, oob []byte, flags int) (*socketMsg, error) {
	_, oobn, _, from, err := unixRecvMsg(int(fd), data, oob, flags)
	if err != nil {
		return nil, err
	}

	dst, ok := from.(*unix.SockaddrInet4)
	if !ok {
		return nil, fmt.Errorf("unexpected address type of queued error: %T", from)
	}
	return &socketMsg{dst: dst, oob: oob[:oobn]}, nil
}

// parseExtendedErr decodes the SOL_IP / IP_RECVERR control message of a queued error.
// Only ICMP time exceeded and destination unreachable errors for probes to the
// target are turned into responses.
func (c *errQueueCapture) parseExtendedErr(msg *socketMsg) (ProbeResponse, bool) {
	if msg == nil || msg.dst == nil || netip.AddrFrom4(msg.dst.Addr) != c.target {
		return ProbeResponse{}, false
	}

	cms, err := unix.ParseSocketControlMessage(msg.oob)
	if err != nil {
		return ProbeResponse{}, false
	}

	for _, cm := range cms {
		if cm.Header.Level != unix.SOL_IP || cm.Header.Type != unix.IP_RECVERR {
			continue
		}

		ee, err := newSockExtendedErr(cm.Data)
		if err != nil || ee.Origin != unix.SO_EE_ORIGIN_ICMP {
			return ProbeResponse{}, false
		}

		var kind ReplyKind
		switch ee.Type {
		case uint8(ipv4.ICMPTypeTimeExceeded):
			kind = ReplyTimeExceeded
		case uint8(ipv4.ICMPTypeDestinationUnreachable):
			kind = ReplyUnreachable
		default:
			return ProbeResponse{}, false
		}

		from, ok := offenderAddr(cm.Data)
		if !ok {
			return ProbeResponse{}, false
		}

		return ProbeResponse{
			ID:   ProbeID{Ident: c.ident, Seq: uint16(msg.dst.Port)}, // #nosec G115 // ports are 16 bit
			From: from,
			Kind: kind,
			Code: ee.Code,
		}, true
	}

	return ProbeResponse{}, false
}

// newSockExtendedErr converts the first 16 bytes of an OOB buffer into a [unix.SockExtendedErr].
func newSockExtendedErr(data []byte) (unix.SockExtendedErr, error) {
	if len(data) < minExtendedErrSize {
		return unix.SockExtendedErr{}, fmt.Errorf("extended error too short: %d bytes", len(data))
	}

	return unix.SockExtendedErr{
		Errno:  binary.LittleEndian.Uint32(data[0:4]),
		Origin: data[4],
		Type:   data[5],
		Code:   data[6],
		Info:   binary.LittleEndian.Uint32(data[8:12]),
		Data:   binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// offenderAddr returns the address of the node that sent the ICMP error.
// The kernel appends it as a sockaddr_in (SO_EE_OFFENDER) right after the extended error.
func offenderAddr(data []byte) (netip.Addr, bool) {
	if len(data) < minExtendedErrSize+offenderLen {
		return netip.Addr{}, false
	}
	sa := data[minExtendedErrSize : minExtendedErrSize+offenderLen]
	if binary.NativeEndian.Uint16(sa[0:2]) != unix.AF_INET {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(sa[4:8])), true
}

// recvErrConn is the sending side of a socket with IP_RECVERR enabled.
// Every ICMP error the kernel queues also becomes the pending socket error,
// which fails the next send without transmitting the datagram.
type recvErrConn struct {
	ttlConn
	rawConn syscall.RawConn
}

func newRecvErrConn(c net.PacketConn) (*recvErrConn, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("the provided connection does not implement syscall.Conn: %T", c)
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("failed to get RawConn: %w", err)
	}
	return &recvErrConn{ttlConn: newTTLConn(c), rawConn: rc}, nil
}

// WriteTo clears the pending socket error before sending. A send that still
// fails with an ICMP derived error is retried, reading the error queue can
// raise the pending error again in between.
func (c *recvErrConn) WriteTo(b []byte, addr net.Addr) (n int, err error) {
	for range maxPendingErrRetries + 1 {
		if err = c.clearPendingError(); err != nil {
			return 0, err
		}
		n, err = c.PacketConn.WriteTo(b, addr)
		if err == nil || !isICMPSendError(err) {
			return n, err
		}
	}
	return n, err
}

func (c *recvErrConn) clearPendingError() error {
	var opErr error
	if err := c.rawConn.Control(func(fd uintptr) {
		_, opErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
	}); err != nil {
		return err
	}
	if opErr != nil {
		return fmt.Errorf("failed to clear pending socket error: %w", opErr)
	}
	return nil
}

// isICMPSendError reports whether a send failed with an error the kernel
// derives from a received ICMP error.
func isICMPSendError(err error) bool {
	for _, errno := range []unix.Errno{unix.ECONNREFUSED, unix.EHOSTUNREACH, unix.ENETUNREACH, unix.EHOSTDOWN, unix.EPROTO} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
