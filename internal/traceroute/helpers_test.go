// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddrFromNet(t *testing.T) {
	tests := []struct {
		name   string
		addr   net.Addr
		want   netip.Addr
		wantOK bool
	}{
		{"TCPAddr", &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 80}, netip.MustParseAddr("1.2.3.4"), true},
		{"UDPAddr", &net.UDPAddr{IP: net.ParseIP("5.6.7.8"), Port: 53}, netip.MustParseAddr("5.6.7.8"), true},
		{"IPAddr", &net.IPAddr{IP: net.IPv4(9, 10, 11, 12)}, netip.MustParseAddr("9.10.11.12"), true},
		{"IPAddr 4 byte form", &net.IPAddr{IP: net.IP{9, 10, 11, 12}}, netip.MustParseAddr("9.10.11.12"), true},
		{"empty IP", &net.IPAddr{}, netip.Addr{}, false},
		{"UnixAddr (unsupported)", &net.UnixAddr{Name: "/tmp/x", Net: "unix"}, netip.Addr{}, false},
		{"nil Addr", nil, netip.Addr{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := addrFromNet(tt.addr)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(context.Background(), nil, "nothing happened"))

	cause := errors.New("permission denied")
	err := wrapError(context.Background(), cause, "failed to open %s socket", "icmp")
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "failed to open icmp socket: permission denied")
}
