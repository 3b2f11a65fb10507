package fetch

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrBlockedAddress marks a fetch refused by the private-network guard.
var ErrBlockedAddress = fmt.Errorf("destination address is not publicly routable")

// ValidateTarget rejects URLs the fetcher must never dial: non-http schemes
// and hostnames that are literal private, loopback, or link-local addresses.
// Hostnames that resolve to such addresses are caught again at dial time.
func ValidateTarget(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if strings.EqualFold(host, "localhost") {
		return ErrBlockedAddress
	}
	if ip := net.ParseIP(host); ip != nil && !isPublicIP(ip) {
		return ErrBlockedAddress
	}
	return nil
}

// dialControl runs after DNS resolution, immediately before connect, so
// rebinding a public hostname to a private address does not help.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("split dial address %q: %w", address, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("dial address %q is not an IP", address)
	}
	if !isPublicIP(ip) {
		return ErrBlockedAddress
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsUnspecified(),
		ip.IsMulticast():
		return false
	}
	// Carrier-grade NAT range is not covered by IsPrivate.
	if cgnat := net.IPv4(100, 64, 0, 0); ip.To4() != nil {
		if masked := ip.Mask(net.CIDRMask(10, 32)); masked != nil && masked.Equal(cgnat.Mask(net.CIDRMask(10, 32))) {
			return false
		}
	}
	return true
}
