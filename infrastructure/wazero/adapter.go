package wazero

import (
	"context"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/internal/abi"
)

// DefaultHostModule is the module name guests import host functions from.
const DefaultHostModule = "frontrow_host"

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives failures of host function calls.
	Logger *slog.Logger

	// ModuleName is the host module name (default: "frontrow_host").
	ModuleName string

	// CustomHandlers allows adding additional wazero-specific handlers that
	// don't fit the standard ByteHandler pattern (e.g., log_message with no return).
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of incoming requests from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32
}

// CustomHandler represents a custom wazero handler that doesn't use the standard
// packed i64 request/response pattern.
type CustomHandler struct {
	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// Name is the exported function name.
	Name string

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "frontrow_host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// WithAdapterLogger sets the logger for failed host function calls.
func WithAdapterLogger(l *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Logger:         slog.Default(),
		ModuleName:     DefaultHostModule,
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime exposes every handler of registry to guests as a host
// function taking and returning a packed i64 pointer and length. Requests
// and replies are encoded value sequences. A failed call returns 0, which
// guests treat as a null response.
//
// Example:
//
//	registry, _ := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.DemoBundle(os.Stdout)),
//	)
//	err := wazero.RegisterWithRuntime(ctx, runtime, registry)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	if registry != nil {
		for _, name := range registry.Names() {
			funcName := name // capture for closure
			builder.NewFunctionBuilder().
				WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
					stack[0] = handleRegistryCall(ctx, mod, stack[0], registry, funcName, cfg)
				}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
				Export(funcName)
		}
	}

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

// handleRegistryCall reads the request from guest memory, invokes the
// handler and writes the reply back through the guest allocator.
func handleRegistryCall(ctx context.Context, mod api.Module, packed uint64, registry *hostfuncs.HandlerRegistry, name string, cfg AdapterConfig) uint64 {
	logger := cfg.Logger.With(
		slog.String("function", name),
		slog.String("machine", GetMachineName(ctx, mod)))

	guest, err := abi.NewGuest(mod)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: guest cannot receive replies", slog.Any("error", err))
		return 0
	}

	_, length, err := abi.UnpackPtrLen(packed)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: invalid request pointer", slog.Any("error", err))
		return 0
	}
	if length > cfg.MaxRequestSize {
		logger.ErrorContext(ctx, "wazero: request too large",
			slog.Uint64("size", uint64(length)),
			slog.Uint64("limit", uint64(cfg.MaxRequestSize)))
		return 0
	}

	request, err := guest.Read(packed)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: failed to read request from guest memory", slog.Any("error", err))
		return 0
	}

	response, err := registry.Invoke(ctx, name, request)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: handler invocation failed", slog.Any("error", err))
		return 0
	}

	reply, err := guest.Write(ctx, response)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: failed to write reply to guest memory", slog.Any("error", err))
		return 0
	}
	return reply
}
