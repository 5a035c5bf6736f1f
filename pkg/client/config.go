package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by DefaultConfig and New.
const (
	DefaultRetryCount = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultTimeout    = 30 * time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// BackoffKind selects the delay policy between retry attempts.
type BackoffKind string

const (
	// BackoffLinear sleeps RetryDelay * (attempt + 1).
	BackoffLinear BackoffKind = "linear"

	// BackoffExponential sleeps RetryDelay * 2^attempt with ±20% jitter,
	// capped at MaxBackoff.
	BackoffExponential BackoffKind = "exponential"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the collection URL every request is built from.
	// It may be empty at construction and set later with SetBaseURL.
	BaseURL string `yaml:"base_url"`

	// Session defaults
	BaseParams  map[string]string `yaml:"base_params,omitempty"`
	BaseHeaders map[string]string `yaml:"base_headers,omitempty"`
	Proxies     map[string]string `yaml:"proxies,omitempty"` // scheme (or "all") -> proxy URL
	BearerToken string            `yaml:"bearer_token,omitempty"`

	// Retry
	RetryCount          int           `yaml:"retry_count"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	Backoff             BackoffKind   `yaml:"backoff"`
	MaxBackoff          time.Duration `yaml:"max_backoff"`
	NoRetryClientErrors bool          `yaml:"no_retry_client_errors"`

	// Timeout bounds a single transport call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		RetryCount: DefaultRetryCount,
		RetryDelay: DefaultRetryDelay,
		Backoff:    BackoffLinear,
		MaxBackoff: DefaultMaxBackoff,
		Timeout:    DefaultTimeout,
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig("")
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// normalize fills zero values with defaults and rejects invalid settings.
func (c *Config) normalize() error {
	if c.RetryCount < 0 {
		return fmt.Errorf("retry_count must be >= 1 (got %d)", c.RetryCount)
	}
	if c.RetryCount == 0 {
		c.RetryCount = DefaultRetryCount
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0 (got %s)", c.RetryDelay)
	}

	switch c.Backoff {
	case "":
		c.Backoff = BackoffLinear
	case BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("unknown backoff %q", c.Backoff)
	}

	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return nil
}

func copyMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
