// Package safeurl guards outbound fetches against SSRF by refusing
// hostnames that resolve to private, loopback, or otherwise unroutable
// addresses. The check runs before the first request and again on every
// redirect hop, which also covers DNS-rebinding via redirects.
package safeurl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrBlockedHost means the hostname is denylisted or resolves to at least
// one unsafe address.
var ErrBlockedHost = errors.New("hostname is not allowed")

// ErrResolution means DNS lookup failed for the hostname.
var ErrResolution = errors.New("dns lookup failed")

// blockedHosts are localhost-equivalents rejected without resolving.
var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
	"0.0.0.0":   {},
}

// Resolver is the DNS dependency; *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard validates hostnames before outbound requests.
type Guard struct {
	resolver Resolver
}

// NewGuard returns a Guard backed by the given resolver, or the default
// system resolver when nil.
func NewGuard(resolver Resolver) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Guard{resolver: resolver}
}

// Check resolves host and returns ErrBlockedHost if the host is
// denylisted, resolves to zero addresses, or any resolved address is
// private, loopback, link-local, multicast, reserved, or unspecified.
// A failed lookup returns ErrResolution.
func (g *Guard) Check(ctx context.Context, host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty hostname", ErrBlockedHost)
	}
	lower := strings.ToLower(host)
	if _, ok := blockedHosts[lower]; ok {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}

	// Literal IPs skip DNS entirely.
	if ip := net.ParseIP(host); ip != nil {
		if ipUnsafe(ip) {
			return fmt.Errorf("%w: %s is not publicly routable", ErrBlockedHost, host)
		}
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrResolution, host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s resolved to no addresses", ErrBlockedHost, host)
	}
	// Reject on ANY unsafe address, not just the first; a mixed answer is
	// how DNS-rebinding smuggles an internal target past a one-shot check.
	for _, addr := range addrs {
		if ipUnsafe(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrBlockedHost, host, addr.IP)
		}
	}
	return nil
}

func ipUnsafe(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	// IPv4 class E (240.0.0.0/4) is reserved and has no IsX helper.
	if v4 := ip.To4(); v4 != nil && v4[0] >= 240 {
		return true
	}
	return false
}
