// Package config loads server settings from an optional YAML file overlaid
// with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything cmd/server and cmd/riskctl need to wire the service.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	// Production switches ACME to the real Let's Encrypt CA.
	Production bool `yaml:"production"`

	Classifier ClassifierConfig `yaml:"classifier"`
	URLIntel   URLIntelConfig   `yaml:"url_intel"`

	// DatabaseURL enables the domain blocklist when set.
	DatabaseURL string `yaml:"database_url"`

	TLS       TLSConfig                  `yaml:"tls"`
	RateLimit map[string]RateLimitConfig `yaml:"rate_limit"`
}

// ClassifierConfig selects and configures the text classifier backend.
type ClassifierConfig struct {
	Backend         string `yaml:"backend"`
	ModelPath       string `yaml:"model_path"`
	AnthropicModel  string `yaml:"anthropic_model"`
	AnthropicAPIKey string `yaml:"-"`
}

// URLIntelConfig bounds outbound fetches made while assessing a URL.
type URLIntelConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	UserAgent    string        `yaml:"user_agent"`
}

// TLSConfig enables certmagic-managed HTTPS for the listed domains.
type TLSConfig struct {
	Domains []string `yaml:"domains"`
	Email   string   `yaml:"email"`
}

// RateLimitConfig overrides one named rate limit bucket.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Classifier: ClassifierConfig{
			Backend:   "model",
			ModelPath: "models/spam_model.json",
		},
		URLIntel: URLIntelConfig{
			FetchTimeout: 10 * time.Second,
			MaxBodyBytes: 2 << 20,
			UserAgent:    "msgguard-urlintel/1.0",
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Classifier.Backend = getEnv("CLASSIFIER_BACKEND", c.Classifier.Backend)
	c.Classifier.ModelPath = getEnv("MODEL_PATH", c.Classifier.ModelPath)
	c.Classifier.AnthropicModel = getEnv("ANTHROPIC_MODEL", c.Classifier.AnthropicModel)
	c.Classifier.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.Classifier.AnthropicAPIKey)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.TLS.Email = getEnv("ACME_EMAIL", c.TLS.Email)

	if v := os.Getenv("TLS_DOMAINS"); v != "" {
		c.TLS.Domains = splitList(v)
	}
	if v := os.Getenv("MSGGUARD_ENV"); v != "" {
		c.Production = v == "production"
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		c.URLIntel.FetchTimeout = d
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		c.URLIntel.MaxBodyBytes = n
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.Classifier.Backend {
	case "model":
		if c.Classifier.ModelPath == "" {
			errs = append(errs, errors.New("classifier.model_path is required for the model backend"))
		}
	case "claude":
		if c.Classifier.AnthropicModel == "" {
			errs = append(errs, errors.New("classifier.anthropic_model is required for the claude backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown classifier backend %q", c.Classifier.Backend))
	}
	if c.URLIntel.FetchTimeout <= 0 {
		errs = append(errs, errors.New("url_intel.fetch_timeout must be positive"))
	}
	for name, rl := range c.RateLimit {
		if rl.MaxRequests <= 0 || rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.%s: max_requests and window must be positive", name))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
