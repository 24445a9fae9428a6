// Package tls serves the API over HTTPS with certificates obtained through ACME.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/caddyserver/certmagic"
)

// Options configures a CertManager.
type Options struct {
	Domains    []string
	Email      string
	Production bool
}

// CertManager manages automatic TLS certificates via certmagic. Certificates
// are issued only for the configured domains.
type CertManager struct {
	domains map[string]struct{}
	names   []string
	logger  *slog.Logger
	cfg     *certmagic.Config
}

// NewCertManager creates a CertManager for opts.Domains. Outside production the
// Let's Encrypt staging CA is used.
func NewCertManager(opts Options, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = opts.Email
	certmagic.DefaultACME.Agreed = true
	if !opts.Production {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	cm := &CertManager{domains: make(map[string]struct{}), logger: logger}
	for _, d := range opts.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := cm.domains[d]; !dup {
			cm.domains[d] = struct{}{}
			cm.names = append(cm.names, d)
		}
	}

	cfg := certmagic.NewDefault()
	cfg.OnDemand = &certmagic.OnDemandConfig{
		DecisionFunc: cm.allowCert,
	}
	cm.cfg = cfg
	return cm
}

// allowCert is the on-demand decision function; only configured names pass.
func (cm *CertManager) allowCert(_ context.Context, name string) error {
	if _, ok := cm.domains[strings.ToLower(name)]; !ok {
		return fmt.Errorf("unknown domain: %s", name)
	}
	return nil
}

// Domains returns the configured domain names in order.
func (cm *CertManager) Domains() []string {
	return cm.names
}

// ListenAndServe pre-manages the configured domains, then serves handler over
// TLS on port 443 until ctx is cancelled.
func (cm *CertManager) ListenAndServe(ctx context.Context, handler http.Handler) error {
	cm.logger.Info("starting TLS server", "domains", cm.names)

	if len(cm.names) > 0 {
		if err := cm.cfg.ManageSync(ctx, cm.names); err != nil {
			return fmt.Errorf("manage domains: %w", err)
		}
	}

	ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", certmagic.HTTPSPort), cm.cfg.TLSConfig())
	if err != nil {
		return fmt.Errorf("tls listen: %w", err)
	}

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	cm.logger.Info("serving HTTPS", "port", certmagic.HTTPSPort)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
