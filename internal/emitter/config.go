// Package emitter builds OpenLineage run events and delivers them to a
// Marquez-compatible backend.
package emitter

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/correlator-io/lineage/internal/config"
)

const (
	defaultNamespace         = "data-lineage-audit"
	defaultBaseURL           = "http://localhost:5000"
	defaultTimeout           = 10 * time.Second
	defaultMaxRetries        = 3
	defaultBackoffBase       = 250 * time.Millisecond
	defaultBackoffMultiplier = 2.0
	defaultMaxEventsPerSec   = 50.0
)

var (
	// ErrEmptyBaseURL indicates the backend base URL is empty.
	ErrEmptyBaseURL = errors.New("base URL cannot be empty")

	// ErrInvalidBaseURL indicates the backend base URL failed to parse.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrEmptyNamespace indicates the default namespace is empty.
	ErrEmptyNamespace = errors.New("namespace cannot be empty")

	// ErrInvalidTimeout indicates the per-attempt timeout is zero or negative.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidMaxRetries indicates a negative retry budget.
	ErrInvalidMaxRetries = errors.New("max retries cannot be negative")

	// ErrInvalidBackoff indicates a non-positive backoff base or a multiplier below 1.
	ErrInvalidBackoff = errors.New("backoff base must be positive and multiplier at least 1")
)

// Config holds emission client configuration.
// Pure configuration only - no runtime dependencies. Every client takes its own
// Config value, so multiple independently configured clients can coexist in one
// process (multi-tenant and test scenarios).
type Config struct {
	// BaseURL is the backend root; events POST to {BaseURL}/api/v1/lineage.
	BaseURL string `yaml:"base_url"` //nolint:tagliatelle

	// Namespace is the default namespace stamped on jobs and datasets that
	// do not declare their own.
	Namespace string `yaml:"namespace"`

	// Timeout bounds each individual delivery attempt. Independent of the
	// retry policy's backoff delays.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `yaml:"max_retries"` //nolint:tagliatelle

	// BackoffBase is the delay before the first retry.
	BackoffBase time.Duration `yaml:"backoff_base"` //nolint:tagliatelle

	// BackoffMultiplier grows the delay between consecutive retries.
	BackoffMultiplier float64 `yaml:"backoff_multiplier"` //nolint:tagliatelle

	// MaxEventsPerSecond caps sustained outbound event rate. Zero disables
	// rate limiting.
	MaxEventsPerSecond float64 `yaml:"max_events_per_second"` //nolint:tagliatelle

	// APIKey, when set, is sent as X-API-Key on every request.
	APIKey string `yaml:"api_key"` //nolint:tagliatelle
}

// LoadConfig loads emission configuration from environment variables with
// sensible defaults.
func LoadConfig() *Config {
	return &Config{
		BaseURL:            config.GetEnvStr("LINEAGE_URL", defaultBaseURL),
		Namespace:          config.GetEnvStr("LINEAGE_NAMESPACE", defaultNamespace),
		Timeout:            config.GetEnvDuration("LINEAGE_TIMEOUT", defaultTimeout),
		MaxRetries:         config.GetEnvInt("LINEAGE_MAX_RETRIES", defaultMaxRetries),
		BackoffBase:        config.GetEnvDuration("LINEAGE_BACKOFF_BASE", defaultBackoffBase),
		BackoffMultiplier:  config.GetEnvFloat("LINEAGE_BACKOFF_MULTIPLIER", defaultBackoffMultiplier),
		MaxEventsPerSecond: config.GetEnvFloat("LINEAGE_MAX_EVENTS_PER_SECOND", defaultMaxEventsPerSec),
		APIKey:             config.GetEnvStr("LINEAGE_API_KEY", ""),
	}
}

// LoadConfigFile loads emission configuration from a YAML file, applying file
// values on top of environment/default values. A missing file is not an error:
// the env-backed config is returned unchanged, so a config file stays optional.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks if the emission configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrEmptyBaseURL
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidBaseURL, c.BaseURL)
	}

	if strings.TrimSpace(c.Namespace) == "" {
		return ErrEmptyNamespace
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.BackoffBase <= 0 || c.BackoffMultiplier < 1 {
		return ErrInvalidBackoff
	}

	return nil
}
