package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/avolkov/uniadmin/internal/flagx"
	"github.com/avolkov/uniadmin/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Interval fields use
// timex.Duration so config files can spell them as "15m" or as integer
// nanoseconds. Zero-valued fields leave the defaults untouched.
type JsonConfig struct {
	EndpointAddr            string         `json:"endpoint_addr"`
	DatabaseDriver          string         `json:"database_driver"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	BearerValidityDuration  timex.Duration `json:"bearer_validity_duration"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	MaxSessionsPerAccount   int            `json:"max_sessions_per_account"`
	RefreshTokenLength      int            `json:"refresh_token_length"`
	HashMemoryKiB           uint32         `json:"hash_memory_kib"`
	HashIterations          uint32         `json:"hash_iterations"`
	HashParallelism         uint8          `json:"hash_parallelism"`
	HashSaltLength          uint32         `json:"hash_salt_length"`
	HashKeyLength           uint32         `json:"hash_key_length"`
}

// parseJson loads configuration from the JSON file named by the -c/-config
// flags. When no file is named, nothing happens.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDriver != "" {
		config.DatabaseDriver = c.DatabaseDriver
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.BearerValidityDuration.Duration != 0 {
		config.BearerValidityDuration = c.BearerValidityDuration.Duration
	}
	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.MaxSessionsPerAccount != 0 {
		config.MaxSessionsPerAccount = c.MaxSessionsPerAccount
	}
	if c.RefreshTokenLength != 0 {
		config.RefreshTokenLength = c.RefreshTokenLength
	}
	if c.HashMemoryKiB != 0 {
		config.HashMemoryKiB = c.HashMemoryKiB
	}
	if c.HashIterations != 0 {
		config.HashIterations = c.HashIterations
	}
	if c.HashParallelism != 0 {
		config.HashParallelism = c.HashParallelism
	}
	if c.HashSaltLength != 0 {
		config.HashSaltLength = c.HashSaltLength
	}
	if c.HashKeyLength != 0 {
		config.HashKeyLength = c.HashKeyLength
	}

	return nil
}
