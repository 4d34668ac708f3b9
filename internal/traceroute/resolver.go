// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/telekom/traceprobe/internal/logger"
)

const (
	// namesCacheSize is the number of reverse lookups kept per client.
	namesCacheSize = 256
	// defaultLookupTimeout bounds the reverse lookups of one hop.
	defaultLookupTimeout = 2 * time.Second
)

var _ Resolver = (*netResolver)(nil)

// Resolver resolves the target host and the names of responders.
//
//go:generate go tool moq -out resolver_moq.go . Resolver
type Resolver interface {
	// LookupIP returns the IPv4 address of the host.
	LookupIP(ctx context.Context, host string) (netip.Addr, error)
	// LookupAddr returns the name of the address.
	LookupAddr(ctx context.Context, addr netip.Addr) (string, error)
}

// netResolver is a [Resolver] backed by the system resolver.
type netResolver struct {
	resolver *net.Resolver
}

// NewResolver returns a [Resolver] using [net.DefaultResolver].
func NewResolver() Resolver {
	return &netResolver{resolver: net.DefaultResolver}
}

func (r *netResolver) LookupIP(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		if !addr.Unmap().Is4() {
			return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", host)
		}
		return addr.Unmap(), nil
	}

	addrs, err := r.resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, err
	}
	for _, a := range addrs {
		if a.Unmap().Is4() {
			return a.Unmap(), nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no IPv4 address found for %s", host)
}

func (r *netResolver) LookupAddr(ctx context.Context, addr netip.Addr) (string, error) {
	names, err := r.resolver.LookupAddr(ctx, addr.String())
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", errors.New("no names found")
	}
	return strings.TrimSuffix(names[0], "."), nil
}

// namer performs reverse lookups of responders and caches the answers.
// Failed lookups are cached as empty names so a silent resolver is asked once per address.
type namer struct {
	resolver Resolver
	cache    *lru.Cache[netip.Addr, string]
	timeout  time.Duration
}

func newNamer(r Resolver, timeout time.Duration) (*namer, error) {
	cache, err := lru.New[netip.Addr, string](namesCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create names cache: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &namer{resolver: r, cache: cache, timeout: timeout}, nil
}

// names resolves the given addresses. Lookups share one timeout.
// Addresses without a name are missing from the returned map.
func (n *namer) names(ctx context.Context, addrs []netip.Addr) map[netip.Addr]string {
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	names := make(map[netip.Addr]string, len(addrs))
	for _, addr := range addrs {
		name, ok := n.cache.Get(addr)
		if !ok {
			var err error
			name, err = n.resolver.LookupAddr(ctx, addr)
			if err != nil {
				log.DebugContext(ctx, "Reverse lookup failed", "addr", addr, "error", err)
				if ctx.Err() != nil {
					// The lookup was cut short, the address may have a name after all.
					continue
				}
			}
			n.cache.Add(addr, name)
		}
		if name != "" {
			names[addr] = name
		}
	}
	return names
}
