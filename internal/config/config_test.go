package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "model", cfg.Classifier.Backend)
	assert.Equal(t, 10*time.Second, cfg.URLIntel.FetchTimeout)
	assert.False(t, cfg.Production)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msgguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
log_level: debug
classifier:
  model_path: /srv/model.json
url_intel:
  fetch_timeout: 3s
tls:
  domains: [guard.example.com]
rate_limit:
  classify:
    max_requests: 5
    window: 1m
`), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("TLS_DOMAINS", "a.example.com, b.example.com")
	t.Setenv("MSGGUARD_ENV", "production")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/model.json", cfg.Classifier.ModelPath)
	assert.Equal(t, 3*time.Second, cfg.URLIntel.FetchTimeout)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.TLS.Domains)
	assert.True(t, cfg.Production)
	assert.Equal(t, RateLimitConfig{MaxRequests: 5, Window: time.Minute}, cfg.RateLimit["classify"])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("FETCH_TIMEOUT", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "FETCH_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Classifier.Backend = "claude"
	assert.ErrorContains(t, cfg.Validate(), "anthropic_model")

	cfg.Classifier.AnthropicModel = "claude-sonnet-4-5"
	assert.NoError(t, cfg.Validate())

	cfg.Classifier.Backend = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "unknown classifier backend")
}
