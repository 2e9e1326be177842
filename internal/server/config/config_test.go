package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, 15*time.Minute, cfg.BearerValidityDuration)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionValidityDuration)
	assert.Equal(t, 5, cfg.MaxSessionsPerAccount)
	assert.Equal(t, 32, cfg.RefreshTokenLength)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
		ok     bool
	}{
		{"defaults", func(cfg *Config) {}, true},
		{"empty secret", func(cfg *Config) { cfg.SecretKey = "" }, false},
		{"short token", func(cfg *Config) { cfg.RefreshTokenLength = 21 }, false},
		{"minimum token", func(cfg *Config) { cfg.RefreshTokenLength = 22 }, true},
		{"bad driver", func(cfg *Config) { cfg.DatabaseDriver = "mysql" }, false},
		{"sqlite driver", func(cfg *Config) { cfg.DatabaseDriver = "sqlite" }, true},
		{"zero sessions", func(cfg *Config) { cfg.MaxSessionsPerAccount = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()
			tc.mutate(cfg)
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestHashParams(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	p := cfg.HashParams()
	assert.Equal(t, cfg.HashMemoryKiB, p.Memory)
	assert.Equal(t, cfg.HashIterations, p.Iterations)
	assert.Equal(t, cfg.HashParallelism, p.Parallelism)
	assert.Equal(t, cfg.HashSaltLength, p.SaltLength)
	assert.Equal(t, cfg.HashKeyLength, p.KeyLength)
}

func withArgs(t *testing.T, args []string) {
	t.Helper()
	orig := os.Args
	os.Args = args
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr": ":9090",
		"database_driver": "sqlite",
		"database_dsn": "file:uniadmin.db",
		"secret_key": "json-secret",
		"bearer_validity_duration": "5m",
		"session_validity_duration": "72h",
		"max_sessions_per_account": 3
	}`), 0o600))

	withArgs(t, []string{"server", "-c", path})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:uniadmin.db", cfg.DatabaseDSN)
	assert.Equal(t, "json-secret", cfg.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.BearerValidityDuration)
	assert.Equal(t, 72*time.Hour, cfg.SessionValidityDuration)
	assert.Equal(t, 3, cfg.MaxSessionsPerAccount)
	// Untouched fields keep their defaults.
	assert.Equal(t, 32, cfg.RefreshTokenLength)
}

func TestLoadConfig_FlagsWinOverJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"endpoint_addr": ":9090", "max_sessions_per_account": 3}`), 0o600))

	withArgs(t, []string{"server", "-c", path, "-a", ":7070", "-m", "10"})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, 10, cfg.MaxSessionsPerAccount)
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t, []string{"server", "-k", "sqlite", "-d", "file:dev.db", "-t", "30", "-r", "240", "-l", "44"})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:dev.db", cfg.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, cfg.BearerValidityDuration)
	assert.Equal(t, 240*time.Hour, cfg.SessionValidityDuration)
	assert.Equal(t, 44, cfg.RefreshTokenLength)
}

func TestLoadConfig_InvalidRejected(t *testing.T) {
	withArgs(t, []string{"server", "-l", "10"})

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MissingConfigFile(t *testing.T) {
	withArgs(t, []string{"server", "-c", "/nonexistent/config.json"})

	_, err := LoadConfig()
	assert.Error(t, err)
}
