package host

import (
	"log/slog"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
)

type bridgeConfig struct {
	logger     *slog.Logger
	invoker    ports.NativeInvoker
	registry   ports.FunctionRegistry
	name       string
	middleware []hostfuncs.Middleware
	config     entities.Config
}

func defaultBridgeConfig() bridgeConfig {
	return bridgeConfig{
		logger: slog.Default(),
		config: entities.DefaultConfig(),
	}
}

// Option defines a functional option for configuring the Bridge.
type Option func(*bridgeConfig)

// WithLogger sets the logger used for lifecycle events and, when logging is
// enabled in the config, for every local invocation.
func WithLogger(logger *slog.Logger) Option {
	return func(c *bridgeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNativeInvoker configures the boundary layer that serves foreign targets.
func WithNativeInvoker(invoker ports.NativeInvoker) Option {
	return func(c *bridgeConfig) {
		c.invoker = invoker
	}
}

// WithRegistry replaces the default in-memory function registry.
func WithRegistry(registry ports.FunctionRegistry) Option {
	return func(c *bridgeConfig) {
		c.registry = registry
	}
}

// WithMiddleware adds middleware around every local function. Middleware
// runs inside panic recovery, in the order given.
func WithMiddleware(mw ...hostfuncs.Middleware) Option {
	return func(c *bridgeConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithConfig sets the SDK configuration. It is validated by Initialize.
func WithConfig(cfg entities.Config) Option {
	return func(c *bridgeConfig) {
		c.config = cfg
	}
}

// WithMachineName sets the name reported in the machine description.
func WithMachineName(name string) Option {
	return func(c *bridgeConfig) {
		c.name = name
	}
}
