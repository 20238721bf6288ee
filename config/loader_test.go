package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Defaults ---

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader().Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 0, cfg.Stream.QueueDepth)
	assert.Equal(t, 1, cfg.Stream.MinUtteranceBytes)
	assert.Equal(t, 15*time.Second, cfg.Stream.AdapterTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

// --- YAML file ---

func TestLoad_FromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  http_port: 9000
  public_host: bridge.example.com
stream:
  queue_depth: 2
  adapter_timeout: 5s
llm:
  model: test-model
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "bridge.example.com", cfg.Server.PublicHost)
	assert.Equal(t, 2, cfg.Stream.QueueDepth)
	assert.Equal(t, 5*time.Second, cfg.Stream.AdapterTimeout)
	assert.Equal(t, "test-model", cfg.LLM.Model)

	// Untouched sections keep defaults.
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
}

func TestLoad_BadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

// --- Environment overrides ---

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o600))

	t.Setenv("VOICEBRIDGE_SERVER_HTTP_PORT", "7070")
	t.Setenv("VOICEBRIDGE_STREAM_ADAPTER_TIMEOUT", "3s")
	t.Setenv("VOICEBRIDGE_STT_BASE_URL", "https://stt.example.com")
	t.Setenv("VOICEBRIDGE_LOG_OUTPUT_PATHS", "stdout, /var/log/bridge.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.Stream.AdapterTimeout)
	assert.Equal(t, "https://stt.example.com", cfg.STT.BaseURL)
	assert.Equal(t, []string{"stdout", "/var/log/bridge.log"}, cfg.Log.OutputPaths)
}

func TestLoad_CustomEnvPrefix(t *testing.T) {
	t.Setenv("BRIDGE_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("BRIDGE").Load()

	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

// --- Validators ---

func TestLoad_ValidatorFailureSurfaces(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return errors.New("nope") }).
		Load()

	assert.Error(t, err)
}

// --- Validate ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "bad http port", mutate: func(c *Config) { c.Server.HTTPPort = 0 }, wantErr: true},
		{name: "negative queue depth", mutate: func(c *Config) { c.Stream.QueueDepth = -1 }, wantErr: true},
		{name: "zero utterance bytes", mutate: func(c *Config) { c.Stream.MinUtteranceBytes = 0 }, wantErr: true},
		{name: "zero adapter timeout", mutate: func(c *Config) { c.Stream.AdapterTimeout = 0 }, wantErr: true},
		{name: "negative max sessions", mutate: func(c *Config) { c.Stream.MaxSessions = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
