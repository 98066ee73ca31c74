package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the collector configuration.
const (
	DefaultHTTPPort     = 8080
	DefaultRetentionTTL = 15 * time.Minute
)

// Config holds the collector-side configuration parsed from the `collector:`
// section of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
}

// CollectorConfig holds all collector-side settings.
type CollectorConfig struct {
	// HTTPPort is the port the capture receiver, REST API, WebSocket hub,
	// and metrics endpoint listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how incoming capture uploads are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// Retention controls in-memory capture retention.
	Retention RetentionConfig `yaml:"retention"`

	// RateLimit bounds capture uploads per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Alerts holds silence rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls upload authentication.
type AuthConfig struct {
	// TokenEnv is the name of the environment variable holding the token
	// agents must send verbatim in the Authorization header. An unset or
	// empty token disables the check.
	TokenEnv string `yaml:"token_env"`
}

// Token returns the expected upload token resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// RetentionConfig controls in-memory capture retention.
type RetentionConfig struct {
	// TTL is how long a display's latest capture remains in the store
	// after its last update. When TTL elapses without a fresh capture the
	// entry is evicted. Default: 15m.
	TTL time.Duration `yaml:"ttl"`
}

// RateLimitConfig bounds upload traffic per client IP.
type RateLimitConfig struct {
	// RequestsPerMinute caps capture uploads per client IP per minute.
	// Zero disables rate limiting.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AlertsConfig holds silence rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []SilenceRule   `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// SilenceRule fires when a subject that has reported at least once stops
// sending captures.
type SilenceRule struct {
	// Name is the human-readable alert identifier, used as part of the
	// deduplication key.
	Name string `yaml:"name"`

	// After is how long a subject may stay silent before the rule fires.
	// Defaults to 5 minutes if zero.
	After time.Duration `yaml:"after"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path, returning the collector
// configuration. Missing fields are filled with sensible defaults before
// validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collector config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("collector config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("collector config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Collector: CollectorConfig{
			HTTPPort: DefaultHTTPPort,
			Retention: RetentionConfig{
				TTL: DefaultRetentionTTL,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	c := cfg.Collector
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("collector.http_port %d is out of range [1, 65535]", c.HTTPPort)
	}
	if c.Retention.TTL <= 0 {
		return fmt.Errorf("collector.retention.ttl must be positive")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("collector.rate_limit.requests_per_minute must not be negative")
	}
	for i, rule := range c.Alerts.Rules {
		if rule.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		switch rule.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, rule.Name, rule.Severity)
		}
	}
	for i, wh := range c.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	return nil
}
