// Package config loads the frontrow-bridge command configuration from
// FRONTROW_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/internal/validate"
)

// Prefix is prepended to every variable name, e.g. FRONTROW_LOG_LEVEL.
const Prefix = "FRONTROW"

// Config holds frontrow-bridge configuration.
type Config struct {
	// Machine
	MachineName string `envconfig:"MACHINE_NAME" default:"demo"`
	Manifest    string `envconfig:"MANIFEST"`

	// ManifestVars fill {{.vars.key}} in the manifest, e.g. "site:lab,line:2".
	ManifestVars map[string]string `envconfig:"MANIFEST_VARS"`

	// Description encoding printed by "describe": json or cbor.
	DescriptionFormat string `envconfig:"DESCRIPTION_FORMAT" default:"json"`

	// Limits
	MaxPayloadSize   int           `envconfig:"MAX_PAYLOAD_SIZE" default:"10485760"`
	MemoryLimitPages uint32        `envconfig:"MEMORY_LIMIT_PAGES" default:"0"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogCalls  bool   `envconfig:"LOG_CALLS" default:"false"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("loading %s_* environment: %w", Prefix, err)
	}
	return &c, nil
}

// SDKConfig converts c into validated SDK settings.
func (c *Config) SDKConfig() (entities.Config, error) {
	cfg := entities.Config{
		LogLevel:        c.LogLevel,
		ShutdownTimeout: c.ShutdownTimeout,
		MaxPayloadSize:  c.MaxPayloadSize,
		EnableLogging:   c.LogCalls,
	}
	if err := validate.Config(cfg); err != nil {
		return entities.Config{}, err
	}
	return cfg, nil
}
