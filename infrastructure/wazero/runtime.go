package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/internal/abi"
	sdklog "github.com/frontrow-dev/frontrow-sdk/log"
)

// LogMessageExport is the host function guests call to emit a log record.
const LogMessageExport = "log_message"

type runtimeConfig struct {
	logger           *slog.Logger
	callbacks        *hostfuncs.HandlerRegistry
	hostModule       string
	maxRequest       uint32
	maxOutput        int
	memoryLimitPages uint32
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		logger:     slog.Default(),
		hostModule: DefaultHostModule,
		maxRequest: hostfuncs.DefaultMaxRequestSize,
		maxOutput:  hostfuncs.DefaultMaxOutputSize,
	}
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

// WithLogger sets the logger for runtime events and guest log records.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCallbacks exposes the handlers of reg to guests through the host module.
func WithCallbacks(reg *hostfuncs.HandlerRegistry) RuntimeOption {
	return func(c *runtimeConfig) {
		c.callbacks = reg
	}
}

// WithHostModuleName overrides the host module name guests import from.
func WithHostModuleName(name string) RuntimeOption {
	return func(c *runtimeConfig) {
		if name != "" {
			c.hostModule = name
		}
	}
}

// WithMemoryLimitPages caps each guest memory in 64KiB pages.
func WithMemoryLimitPages(pages uint32) RuntimeOption {
	return func(c *runtimeConfig) {
		c.memoryLimitPages = pages
	}
}

// WithMaxOutputSize caps the captured guest stdout and stderr.
func WithMaxOutputSize(n int) RuntimeOption {
	return func(c *runtimeConfig) {
		if n > 0 {
			c.maxOutput = n
		}
	}
}

// Runtime owns a wazero runtime with WASI and the host module installed.
// Guest calls are aborted when their context ends.
type Runtime struct {
	runtime wazero.Runtime
	output  *hostfuncs.BoundedBuffer
	logger  *slog.Logger
}

// NewRuntime creates the runtime and instantiates WASI and the host module.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	err := RegisterWithRuntime(ctx, rt, cfg.callbacks,
		WithModuleName(cfg.hostModule),
		WithMaxRequestSize(cfg.maxRequest),
		WithAdapterLogger(cfg.logger),
		WithCustomHandler(CustomHandler{
			Name:       LogMessageExport,
			Handler:    logMessageHandler(cfg.logger, cfg.maxRequest),
			ParamTypes: []api.ValueType{api.ValueTypeI64},
		}),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return &Runtime{
		runtime: rt,
		output:  hostfuncs.NewBoundedBuffer(cfg.maxOutput),
		logger:  cfg.logger,
	}, nil
}

// Instantiate compiles and instantiates a guest module under name and runs
// its _initialize export when present.
func (r *Runtime) Instantiate(ctx context.Context, name string, wasm []byte) (api.Module, error) {
	mc := wazero.NewModuleConfig().
		WithName(name).
		WithStdout(r.output).
		WithStderr(r.output).
		WithStartFunctions()

	mod, err := r.runtime.InstantiateWithConfig(ctx, wasm, mc)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module %q: %w", name, err)
	}

	if init := mod.ExportedFunction(abi.ExportInitialize); init != nil {
		if _, err := init.Call(WithMachineName(ctx, name)); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call %s in %q: %w", abi.ExportInitialize, name, err)
		}
	}

	r.logger.Debug("guest module instantiated", slog.String("machine", name))
	return mod, nil
}

// Output returns the captured guest stdout and stderr.
func (r *Runtime) Output() *hostfuncs.BoundedBuffer {
	return r.output
}

// Close closes every guest module and the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// logMessageHandler forwards guest log records to logger, tagged with the
// machine name.
func logMessageHandler(logger *slog.Logger, maxRequest uint32) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		_, length, err := abi.UnpackPtrLen(stack[0])
		if err != nil || length == 0 || length > maxRequest {
			return
		}
		payload, ok := mod.Memory().Read(uint32(stack[0]>>abi.PtrHighBits), length) //nolint:gosec // G115: packed format stores 32-bit values
		if !ok {
			return
		}

		machine := GetMachineName(ctx, mod)
		msg, err := sdklog.DecodeLogMessage(payload)
		if err != nil {
			logger.InfoContext(ctx, "guest log (raw)", slog.String("machine", machine), slog.String("payload", string(payload)))
			return
		}

		record := msg.Record()
		if !logger.Enabled(ctx, record.Level) {
			return
		}
		record.AddAttrs(slog.String("machine", machine))
		_ = logger.Handler().Handle(ctx, record)
	}
}
