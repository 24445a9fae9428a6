// Package netguard provides SSRF protection by blocking connections to
// private/internal IP ranges. The URL analyzer dials every page fetch through
// DialContext so user-submitted URLs cannot reach internal services.
package netguard

import (
	"context"
	"fmt"
	"net"
	"time"
)

// BlockedCIDRs are private/internal networks that fetched hosts must never resolve to.
var BlockedCIDRs = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.0/8",    // loopback
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918 / Docker bridge networks
		"192.168.0.0/16", // RFC1918
		"100.64.0.0/10",  // carrier-grade NAT
		"169.254.0.0/16", // link-local / cloud metadata
		"0.0.0.0/8",      // unspecified
		"::1/128",        // IPv6 loopback
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // IPv6 unique local
	}
	var nets []*net.IPNet
	for _, c := range cidrs {
		_, ipNet, _ := net.ParseCIDR(c)
		nets = append(nets, ipNet)
	}
	return nets
}()

// IsBlocked returns true if the IP falls within a private/internal range.
func IsBlocked(ip net.IP) bool {
	for _, cidr := range BlockedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// Dialer resolves the target host and refuses to connect when any resolved
// address is blocked.
type Dialer struct {
	Timeout time.Duration
	// AllowPrivate disables the range check. Only tests set it.
	AllowPrivate bool
}

// DialContext has the signature of http.Transport.DialContext.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}
	if d.AllowPrivate {
		return dialer.DialContext(ctx, network, addr)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	if ip := net.ParseIP(host); ip != nil {
		if IsBlocked(ip) {
			return nil, fmt.Errorf("host %s is a blocked private IP", host)
		}
		return dialer.DialContext(ctx, network, addr)
	}

	// Resolve and check every address BEFORE connecting.
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("dns lookup for %s returned no addresses", host)
	}
	for _, ipAddr := range ips {
		if IsBlocked(ipAddr.IP) {
			return nil, fmt.Errorf("host %s resolves to blocked private IP %s", host, ipAddr.IP)
		}
	}

	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}
