package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ErrMalformedTarget is returned when a target is neither an IP literal nor a resolvable host.
var ErrMalformedTarget = errors.New("malformed target")

// LookupNetIP resolves hostnames; tests replace it to avoid DNS.
var LookupNetIP = net.DefaultResolver.LookupNetIP

// ResolveTarget returns the address to scan for target. IP literals of either
// family are returned unchanged; a hostname resolves to its first address.
func ResolveTarget(ctx context.Context, target string) (netip.Addr, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return netip.Addr{}, fmt.Errorf("%w: empty target", ErrMalformedTarget)
	}

	// Accept bracketed IPv6 literals as typed on command lines.
	literal := strings.TrimSuffix(strings.TrimPrefix(target, "["), "]")
	if addr, err := netip.ParseAddr(literal); err == nil {
		return addr.Unmap(), nil
	}
	if strings.ContainsAny(target, "[]/ ") {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrMalformedTarget, target)
	}

	addrs, err := LookupNetIP(ctx, "ip", target)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", target, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("resolve %s: no addresses", target)
	}
	return addrs[0].Unmap(), nil
}
