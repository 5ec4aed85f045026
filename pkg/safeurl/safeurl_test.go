package safeurl

import (
	"context"
	"errors"
	"net"
	"testing"
)

// fakeResolver returns canned answers per hostname.
type fakeResolver struct {
	answers map[string][]string
	err     error
}

func (f *fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if f.err != nil {
		return nil, f.err
	}
	ips, ok := f.answers[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	addrs := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return addrs, nil
}

func TestCheck(t *testing.T) {
	resolver := &fakeResolver{answers: map[string][]string{
		"public.example":     {"93.184.216.34"},
		"public-v6.example":  {"2606:2800:220:1:248:1893:25c8:1946"},
		"private.example":    {"10.0.0.5"},
		"loopback.example":   {"127.0.0.8"},
		"linklocal.example":  {"169.254.1.1"},
		"multicast.example":  {"224.0.0.1"},
		"reserved.example":   {"240.0.0.1"},
		"unspecified.exmpl":  {"0.0.0.0"},
		"mixed.example":      {"93.184.216.34", "192.168.1.10"},
		"empty.example":      {},
		"private-v6.example": {"fd00::1"},
	}}
	g := NewGuard(resolver)

	tests := []struct {
		name    string
		host    string
		wantErr error
	}{
		{"public v4", "public.example", nil},
		{"public v6", "public-v6.example", nil},
		{"denylisted localhost", "localhost", ErrBlockedHost},
		{"denylisted localhost upper", "LOCALHOST", ErrBlockedHost},
		{"denylisted loopback literal", "127.0.0.1", ErrBlockedHost},
		{"denylisted v6 loopback", "::1", ErrBlockedHost},
		{"private", "private.example", ErrBlockedHost},
		{"loopback range", "loopback.example", ErrBlockedHost},
		{"link local", "linklocal.example", ErrBlockedHost},
		{"multicast", "multicast.example", ErrBlockedHost},
		{"reserved class E", "reserved.example", ErrBlockedHost},
		{"unspecified", "unspecified.exmpl", ErrBlockedHost},
		{"one unsafe among several", "mixed.example", ErrBlockedHost},
		{"zero addresses", "empty.example", ErrBlockedHost},
		{"private v6 ULA", "private-v6.example", ErrBlockedHost},
		{"dns failure", "nxdomain.example", ErrResolution},
		{"literal public ip", "93.184.216.34", nil},
		{"literal private ip", "192.168.0.1", ErrBlockedHost},
		{"empty host", "", ErrBlockedHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(context.Background(), tt.host)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Check(%q) = %v, want nil", tt.host, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check(%q) = %v, want %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestCheckResolverError(t *testing.T) {
	g := NewGuard(&fakeResolver{err: errors.New("servfail")})
	if err := g.Check(context.Background(), "anything.example"); !errors.Is(err, ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}
