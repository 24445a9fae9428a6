package dns

import (
	"context"
	"net"
	"strings"
)

// Records holds the DNS answers collected for a host.
type Records struct {
	Domain string   `json:"domain"`
	A      []string `json:"a,omitempty"`
	AAAA   []string `json:"aaaa,omitempty"`
	CNAME  string   `json:"cname,omitempty"`
	MX     []string `json:"mx,omitempty"`
}

// Resolved reports whether the host has any address records.
func (r *Records) Resolved() bool {
	return len(r.A) > 0 || len(r.AAAA) > 0
}

// Map converts the records into a JSON-friendly map for raw signal output.
func (r *Records) Map() map[string]any {
	return map[string]any{
		"domain": r.Domain,
		"a":      nonNil(r.A),
		"aaaa":   nonNil(r.AAAA),
		"cname":  r.CNAME,
		"mx":     nonNil(r.MX),
	}
}

// Resolver is the subset of *net.Resolver used for lookups.
type Resolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Resolve fetches current DNS records for a domain. Lookup failures leave the
// corresponding fields empty: a domain that does not resolve is a signal, not an error.
func Resolve(ctx context.Context, resolver Resolver, domain string) *Records {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	result := &Records{Domain: domain}

	cname, err := resolver.LookupCNAME(ctx, domain)
	if err == nil && cname != domain+"." {
		result.CNAME = strings.TrimSuffix(cname, ".")
	}

	if mxs, err := resolver.LookupMX(ctx, domain); err == nil {
		for _, mx := range mxs {
			result.MX = append(result.MX, strings.TrimSuffix(mx.Host, "."))
		}
	}

	ips, err := resolver.LookupHost(ctx, domain)
	if err != nil {
		return result // domain may not resolve, not an error
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil {
			if parsed.To4() != nil {
				result.A = append(result.A, ip)
			} else {
				result.AAAA = append(result.AAAA, ip)
			}
		}
	}
	return result
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
