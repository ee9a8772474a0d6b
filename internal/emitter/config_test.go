package emitter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, "data-lineage-audit", cfg.Namespace)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffBase)
	assert.InEpsilon(t, 2.0, cfg.BackoffMultiplier, 0.001)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("LINEAGE_URL", "http://marquez:5000")
	t.Setenv("LINEAGE_NAMESPACE", "orders-audit")
	t.Setenv("LINEAGE_MAX_RETRIES", "5")
	t.Setenv("LINEAGE_TIMEOUT", "2s")
	t.Setenv("LINEAGE_BACKOFF_MULTIPLIER", "1.5")

	cfg := LoadConfig()

	assert.Equal(t, "http://marquez:5000", cfg.BaseURL)
	assert.Equal(t, "orders-audit", cfg.Namespace)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.InEpsilon(t, 1.5, cfg.BackoffMultiplier, 0.001)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".lineage.yaml")

	content := `
base_url: http://marquez:5000
namespace: orders-audit
max_retries: 7
backoff_base: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfigFile(path)

	require.NoError(t, err)
	assert.Equal(t, "http://marquez:5000", cfg.BaseURL)
	assert.Equal(t, "orders-audit", cfg.Namespace)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffBase)
}

// A missing config file is not an error: the env-backed config applies.
func TestLoadConfigFile_MissingFile(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "data-lineage-audit", cfg.Namespace)
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [broken"), 0o600))

	_, err := LoadConfigFile(path)

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty base URL", func(c *Config) { c.BaseURL = " " }, ErrEmptyBaseURL},
		{"unparseable base URL", func(c *Config) { c.BaseURL = "not-a-url" }, ErrInvalidBaseURL},
		{"empty namespace", func(c *Config) { c.Namespace = "" }, ErrEmptyNamespace},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"zero backoff base", func(c *Config) { c.BackoffBase = 0 }, ErrInvalidBackoff},
		{"multiplier below one", func(c *Config) { c.BackoffMultiplier = 0.5 }, ErrInvalidBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// Zero retries is a valid budget: emit once, never retry.
func TestConfig_ZeroRetriesValid(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 0

	assert.NoError(t, cfg.Validate())
}
