package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, name := range []string{
		"MACHINE_NAME", "MANIFEST", "MANIFEST_VARS", "DESCRIPTION_FORMAT", "MAX_PAYLOAD_SIZE",
		"MEMORY_LIMIT_PAGES", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "LOG_CALLS",
	} {
		key := Prefix + "_" + name
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.MachineName)
	assert.Empty(t, cfg.Manifest)
	assert.Empty(t, cfg.ManifestVars)
	assert.Equal(t, "json", cfg.DescriptionFormat)
	assert.Equal(t, 10485760, cfg.MaxPayloadSize)
	assert.Zero(t, cfg.MemoryLimitPages)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.LogCalls)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FRONTROW_MACHINE_NAME", "calculator")
	t.Setenv("FRONTROW_MANIFEST", "/etc/frontrow/machine.yaml")
	t.Setenv("FRONTROW_SHUTDOWN_TIMEOUT", "250ms")
	t.Setenv("FRONTROW_MEMORY_LIMIT_PAGES", "32")
	t.Setenv("FRONTROW_LOG_CALLS", "true")
	t.Setenv("FRONTROW_MANIFEST_VARS", "site:lab,line:2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "calculator", cfg.MachineName)
	assert.Equal(t, "/etc/frontrow/machine.yaml", cfg.Manifest)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)
	assert.Equal(t, uint32(32), cfg.MemoryLimitPages)
	assert.True(t, cfg.LogCalls)
	assert.Equal(t, map[string]string{"site": "lab", "line": "2"}, cfg.ManifestVars)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("FRONTROW_MAX_PAYLOAD_SIZE", "lots")

	_, err := Load()
	assert.ErrorContains(t, err, "FRONTROW_")
}

func TestConfig_SDKConfig(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogCalls: true, MaxPayloadSize: 1024, ShutdownTimeout: time.Second}

	sdkCfg, err := cfg.SDKConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", sdkCfg.LogLevel)
	assert.True(t, sdkCfg.EnableLogging)
	assert.Equal(t, 1024, sdkCfg.MaxPayloadSize)
	assert.Equal(t, time.Second, sdkCfg.ShutdownTimeout)

	cfg.MaxPayloadSize = -1
	_, err = cfg.SDKConfig()
	var configErr *domainerrors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "max_payload_size", configErr.Field)

	cfg.MaxPayloadSize = 1024
	cfg.LogLevel = "loud"
	_, err = cfg.SDKConfig()
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "log_level", configErr.Field)
}
