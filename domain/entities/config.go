package entities

import (
	"time"
)

// Config represents SDK configuration settings.
type Config struct {
	// LogLevel is the logging verbosity level (e.g., "debug", "info", "warn", "error").
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	// ShutdownTimeout bounds how long shutdown waits for in-flight calls to drain.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gte=0"`

	// MaxPayloadSize caps the encoded size of arguments and results crossing the boundary.
	MaxPayloadSize int `json:"max_payload_size" validate:"gt=0"`

	// EnableLogging controls whether invocations are logged.
	EnableLogging bool `json:"enable_logging"`
}

// DefaultConfig returns the default SDK configuration.
func DefaultConfig() Config {
	return Config{
		ShutdownTimeout: 5 * time.Second,
		MaxPayloadSize:  10 * 1024 * 1024,
		EnableLogging:   true,
		LogLevel:        "info",
	}
}

// ConfigOption is a functional option for configuring SDK settings.
type ConfigOption func(*Config)

// WithShutdownTimeout sets how long shutdown waits for in-flight calls.
func WithShutdownTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.ShutdownTimeout = d
		}
	}
}

// WithMaxPayloadSize sets the encoded payload cap.
func WithMaxPayloadSize(n int) ConfigOption {
	return func(c *Config) {
		if n > 0 {
			c.MaxPayloadSize = n
		}
	}
}

// WithLogging enables or disables logging.
func WithLogging(enabled bool) ConfigOption {
	return func(c *Config) {
		c.EnableLogging = enabled
	}
}

// WithLogLevel sets the logging verbosity level.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
