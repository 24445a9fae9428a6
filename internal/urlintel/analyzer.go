// Package urlintel gathers signals about a URL (page content, DNS, lexical
// features, blocklist membership) and scores them for phishing and malware risk.
package urlintel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msgguard/msgguard/internal/db"
	"github.com/msgguard/msgguard/internal/dns"
	"github.com/msgguard/msgguard/internal/netguard"
	"github.com/msgguard/msgguard/internal/risk"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultMaxBody   = 1 << 20 // 1 MiB
	defaultUserAgent = "msgguard-urlintel/1.0"
	maxRedirects     = 10
)

// Reputation looks up a host in a domain blocklist. It returns db.ErrNotFound
// when the host is not listed.
type Reputation interface {
	LookupDomain(ctx context.Context, host string) (*db.DomainEntry, error)
}

// Options configures an Analyzer.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Reputation   Reputation   // optional
	Resolver     dns.Resolver // defaults to net.DefaultResolver
	AllowPrivate bool         // disables SSRF protection; tests only
}

// Analyzer implements risk.URLIntelligence.
type Analyzer struct {
	client     *http.Client
	resolver   dns.Resolver
	reputation Reputation
	timeout    time.Duration
	maxBody    int64
	userAgent  string
	logger     *slog.Logger
}

// New creates an Analyzer whose fetches go through the SSRF-guarded dialer.
func New(opts Options, logger *slog.Logger) *Analyzer {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}

	dialer := &netguard.Dialer{Timeout: opts.Timeout, AllowPrivate: opts.AllowPrivate}
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: opts.Timeout,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &Analyzer{
		client:     client,
		resolver:   opts.Resolver,
		reputation: opts.Reputation,
		timeout:    opts.Timeout,
		maxBody:    opts.MaxBodyBytes,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
}

// Fetch retrieves the page and gathers raw signals for rawURL. Any failure to
// parse or retrieve the URL wraps risk.ErrFetch.
func (a *Analyzer) Fetch(ctx context.Context, rawURL string) (risk.RawSignals, error) {
	u, err := parseTarget(rawURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		page    *pageSignals
		records *dns.Records
		listing *db.DomainEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := a.fetchPage(gctx, u)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if net.ParseIP(host) == nil {
		g.Go(func() error {
			records = dns.Resolve(gctx, a.resolver, host)
			return nil
		})
	}
	if a.reputation != nil {
		g.Go(func() error {
			entry, err := a.reputation.LookupDomain(gctx, host)
			switch {
			case err == nil:
				listing = entry
			case errors.Is(err, db.ErrNotFound):
			default:
				a.logger.Warn("urlintel: reputation lookup failed", "host", host, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw := lexicalSignals(rawURL, u)
	page.addTo(raw)
	if records != nil {
		raw["dns"] = records.Map()
		raw["dns_resolved"] = records.Resolved()
	} else {
		raw["dns_resolved"] = true
	}
	raw["blocklisted"] = listing != nil
	if listing != nil {
		raw["blocklist_source"] = listing.Source
		raw["blocklist_category"] = listing.Category
	}
	return raw, nil
}

func parseTarget(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty url", risk.ErrFetch)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", risk.ErrFetch, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported or missing scheme in %q", risk.ErrFetch, rawURL)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in %q", risk.ErrFetch, rawURL)
	}
	return u, nil
}
