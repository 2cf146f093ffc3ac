package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero/api"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/infrastructure/wazero"
)

type executorConfig struct {
	logger           *slog.Logger
	callbacks        *hostfuncs.HandlerRegistry
	maxPayload       int
	memoryLimitPages uint32
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorConfig)

// WithHostFunctions exposes reg to guests as imports of the host module.
func WithHostFunctions(reg *hostfuncs.HandlerRegistry) ExecutorOption {
	return func(c *executorConfig) {
		c.callbacks = reg
	}
}

// WithExecutorLogger sets the logger for guest logs and binding events.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMemoryLimitPages caps guest linear memory, in 64KiB pages.
func WithMemoryLimitPages(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithMaxPayloadSize caps encoded arguments and results crossing into guests.
func WithMaxPayloadSize(n int) ExecutorOption {
	return func(c *executorConfig) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// Executor hosts WebAssembly machines and serves their exports as foreign
// functions.
type Executor struct {
	runtime *wazero.Runtime
	invoker *wazero.Invoker
	logger  *slog.Logger
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...ExecutorOption) (*Executor, error) {
	cfg := executorConfig{
		logger:     slog.Default(),
		maxPayload: hostfuncs.DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rtOpts := []wazero.RuntimeOption{
		wazero.WithLogger(cfg.logger),
		wazero.WithCallbacks(cfg.callbacks),
	}
	if cfg.memoryLimitPages > 0 {
		rtOpts = append(rtOpts, wazero.WithMemoryLimitPages(cfg.memoryLimitPages))
	}
	rt, err := wazero.NewRuntime(ctx, rtOpts...)
	if err != nil {
		return nil, err
	}

	return &Executor{
		runtime: rt,
		invoker: wazero.NewInvoker(
			wazero.WithInvokerLogger(cfg.logger),
			wazero.WithMaxPayloadSize(cfg.maxPayload),
		),
		logger: cfg.logger,
	}, nil
}

// Invoker returns the native invoker serving bound exports. Pass it to the
// bridge with WithNativeInvoker.
func (e *Executor) Invoker() *wazero.Invoker {
	return e.invoker
}

// Output returns the captured stdout and stderr of every machine.
func (e *Executor) Output() *hostfuncs.BoundedBuffer {
	return e.runtime.Output()
}

// Close releases resources held by the executor.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// BoundFunction is a manifest function bound to a guest export.
type BoundFunction struct {
	Name      string
	Export    string
	Signature entities.Signature
	Handle    entities.Handle
}

// Machine is an instantiated guest module and its bound functions.
type Machine struct {
	Manifest  *entities.MachineManifest
	Functions []BoundFunction
	module    api.Module
	invoker   *wazero.Invoker
}

// LoadMachine instantiates wasm and binds every function declared in the
// manifest. On failure nothing stays bound or instantiated.
func (e *Executor) LoadMachine(ctx context.Context, manifest *entities.MachineManifest, wasm []byte) (*Machine, error) {
	mod, err := e.runtime.Instantiate(ctx, manifest.Name, wasm)
	if err != nil {
		return nil, &errors.ManifestError{Stage: "bind", Path: manifest.Module, Err: err}
	}

	m := &Machine{Manifest: manifest, module: mod, invoker: e.invoker}
	for _, fn := range manifest.Functions {
		bound, err := e.bind(mod, fn)
		if err != nil {
			_ = m.Close(ctx)
			return nil, &errors.ManifestError{Stage: "bind", Path: fn.Name, Err: err}
		}
		m.Functions = append(m.Functions, bound)
	}

	e.logger.Info("machine loaded",
		slog.String("machine", manifest.Name),
		slog.Int("functions", len(m.Functions)))
	return m, nil
}

func (e *Executor) bind(mod api.Module, fn entities.ManifestFunction) (BoundFunction, error) {
	sig, err := fn.Signature()
	if err != nil {
		return BoundFunction{}, err
	}
	h, err := e.invoker.Bind(mod, fn.ExportName())
	if err != nil {
		return BoundFunction{}, err
	}
	return BoundFunction{Name: fn.Name, Export: fn.ExportName(), Signature: sig, Handle: h}, nil
}

// Close releases the machine's handles and closes its module.
func (m *Machine) Close(ctx context.Context) error {
	var errs []error
	for _, fn := range m.Functions {
		errs = append(errs, m.invoker.Release(ctx, fn.Handle))
	}
	m.Functions = nil
	if m.module != nil {
		errs = append(errs, m.module.Close(ctx))
	}
	return stdErrors.Join(errs...)
}

// RegisterMachine registers every bound function of m as a foreign
// function. Either all of them are registered or none is.
func (b *Bridge) RegisterMachine(m *Machine) error {
	if b.invoker == nil {
		return &errors.ConfigError{Field: "invoker", Err: fmt.Errorf("machine %q needs a native invoker", m.Manifest.Name)}
	}

	var done []string
	for _, fn := range m.Functions {
		if err := b.Register(fn.Name, fn.Signature, entities.Foreign(fn.Handle)); err != nil {
			for _, name := range done {
				_, _ = b.registry.Unregister(context.Background(), name)
			}
			return err
		}
		done = append(done, fn.Name)
	}
	return nil
}
