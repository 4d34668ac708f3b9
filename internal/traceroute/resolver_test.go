// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetResolver_LookupIP_Literal(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name    string
		host    string
		want    netip.Addr
		wantErr bool
	}{
		{name: "ipv4 literal", host: "192.0.2.10", want: testTarget},
		{name: "ipv4 mapped literal", host: "::ffff:192.0.2.10", want: testTarget},
		{name: "ipv6 literal", host: "2001:db8::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.LookupIP(t.Context(), tt.host)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamer_Names(t *testing.T) {
	second := netip.MustParseAddr("198.51.100.2")
	resolver := &ResolverMock{
		LookupAddrFunc: func(_ context.Context, addr netip.Addr) (string, error) {
			if addr == testRouter {
				return "r1.example.net", nil
			}
			return "", errors.New("nxdomain")
		},
	}

	n, err := newNamer(resolver, time.Second)
	require.NoError(t, err)

	got := n.names(t.Context(), []netip.Addr{testRouter, second})
	assert.Equal(t, map[netip.Addr]string{testRouter: "r1.example.net"}, got)

	got = n.names(t.Context(), []netip.Addr{testRouter, second})
	assert.Equal(t, map[netip.Addr]string{testRouter: "r1.example.net"}, got)
	assert.Len(t, resolver.LookupAddrCalls(), 2, "answers and failures are cached")
}

func TestNamer_Names_Timeout(t *testing.T) {
	resolver := &ResolverMock{
		LookupAddrFunc: func(ctx context.Context, _ netip.Addr) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	n, err := newNamer(resolver, 10*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	got := n.names(t.Context(), []netip.Addr{testRouter, testTarget})
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), time.Second, "lookups share one timeout")

	// Lookups cut short are not cached.
	n.names(t.Context(), []netip.Addr{testRouter})
	assert.Len(t, resolver.LookupAddrCalls(), 3)
}
