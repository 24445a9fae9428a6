package urlintel

import (
	"net"
	"net/url"
	"strings"

	"github.com/msgguard/msgguard/internal/risk"
)

var suspiciousKeywords = []string{
	"login", "signin", "verify", "account", "secure", "update", "banking",
	"confirm", "password", "wallet", "webscr", "suspend", "unlock", "billing",
}

var suspiciousTLDs = map[string]bool{
	"zip": true, "xyz": true, "top": true, "tk": true, "ml": true, "ga": true,
	"cf": true, "gq": true, "click": true, "country": true, "work": true,
	"rest": true, "mov": true, "icu": true, "cam": true,
}

// lexicalSignals derives features from the URL string alone.
func lexicalSignals(rawURL string, u *url.URL) risk.RawSignals {
	host := strings.ToLower(u.Hostname())
	isIP := net.ParseIP(host) != nil

	subdomains := 0
	tld := ""
	if !isIP {
		labels := strings.Split(strings.TrimSuffix(host, "."), ".")
		if len(labels) > 2 {
			subdomains = len(labels) - 2
		}
		tld = labels[len(labels)-1]
	}

	lowerURL := strings.ToLower(rawURL)
	keywords := []string{}
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lowerURL, kw) {
			keywords = append(keywords, kw)
		}
	}

	path := strings.Trim(u.EscapedPath(), "/")
	depth := 0
	if path != "" {
		depth = strings.Count(path, "/") + 1
	}

	return risk.RawSignals{
		"url":                 rawURL,
		"scheme":              u.Scheme,
		"host":                host,
		"is_https":            u.Scheme == "https",
		"url_length":          len(rawURL),
		"has_ip_host":         isIP,
		"has_at_symbol":       u.User != nil || strings.Contains(u.Path, "@"),
		"has_port":            u.Port() != "",
		"subdomain_count":     subdomains,
		"hyphen_count":        strings.Count(host, "-"),
		"is_punycode":         strings.Contains(host, "xn--"),
		"tld":                 tld,
		"suspicious_tld":      suspiciousTLDs[tld],
		"suspicious_keywords": keywords,
		"path_depth":          depth,
		"query_length":        len(u.RawQuery),
	}
}
