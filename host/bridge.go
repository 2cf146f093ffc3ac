package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/host/registry"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/internal/validate"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

// Bridge validates and dispatches calls to registered functions, local
// closures or foreign functions behind a handle, and checks their results
// against the declared signature.
//
// Lifecycle: Uninitialized -> Initialized -> Connected -> ShuttingDown -> Terminated.
// Functions are registered while Initialized and invoked while Connected.
type Bridge struct {
	registry   ports.FunctionRegistry
	logger     *slog.Logger
	invoker    ports.NativeInvoker
	name       string
	middleware []hostfuncs.Middleware
	orphans    []entities.Handle
	config     entities.Config
	mu         sync.Mutex // serializes lifecycle transitions and guards name and orphans
	phase      atomic.Int32
}

// NewBridge creates a bridge in the Uninitialized phase.
func NewBridge(opts ...Option) *Bridge {
	cfg := defaultBridgeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = registry.NewRegistry()
	}

	// Logging wraps recovery so a recovered panic is logged as a failure.
	var mw []hostfuncs.Middleware
	if cfg.config.EnableLogging {
		mw = append(mw, hostfuncs.LoggingMiddleware(cfg.logger))
	}
	mw = append(mw, hostfuncs.PanicRecoveryMiddleware())
	mw = append(mw, cfg.middleware...)

	return &Bridge{
		registry:   cfg.registry,
		logger:     cfg.logger,
		invoker:    cfg.invoker,
		name:       cfg.name,
		middleware: mw,
		config:     cfg.config,
	}
}

// Phase returns the current lifecycle phase.
func (b *Bridge) Phase() entities.Phase {
	return entities.Phase(b.phase.Load())
}

func (b *Bridge) setPhase(p entities.Phase) {
	b.phase.Store(int32(p))
}

func (b *Bridge) require(op string, allowed ...entities.Phase) error {
	current := b.Phase()
	for _, p := range allowed {
		if current == p {
			return nil
		}
	}
	return &errors.PhaseError{Operation: op, Current: current, Required: allowed}
}

// Initialize validates the configuration and moves the bridge to Initialized.
func (b *Bridge) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.require("initialize", entities.PhaseUninitialized); err != nil {
		return err
	}
	if err := validate.Config(b.config); err != nil {
		return err
	}
	b.setPhase(entities.PhaseInitialized)
	b.logger.Debug("bridge initialized", slog.String("machine", b.name))
	return nil
}

// SetName sets the machine name reported at connect time.
func (b *Bridge) SetName(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.require("set name", entities.PhaseUninitialized, entities.PhaseInitialized); err != nil {
		return err
	}
	b.name = name
	return nil
}

// Name returns the machine name.
func (b *Bridge) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// Register declares a function. It is only permitted while Initialized.
func (b *Bridge) Register(name string, sig entities.Signature, target entities.Target) error {
	if err := b.require("register", entities.PhaseInitialized); err != nil {
		return err
	}
	if err := b.registry.Register(name, sig, target); err != nil {
		return err
	}
	b.logger.Debug("function registered",
		slog.String("function", name),
		slog.String("signature", sig.String()),
		slog.Bool("foreign", isForeign(target)))
	return nil
}

func isForeign(t entities.Target) bool {
	_, ok := t.(entities.ForeignTarget)
	return ok
}

// RegisterFunction registers a local function.
func (b *Bridge) RegisterFunction(fn hostfuncs.Function) error {
	var target entities.Target
	if fn.Fn != nil {
		target = entities.Local(fn.Fn)
	}
	return b.Register(fn.Name, fn.Signature, target)
}

// RegisterBundle registers every function of bundle. Either all of them are
// registered or none is.
func (b *Bridge) RegisterBundle(bundle hostfuncs.FunctionBundle) error {
	var done []string
	for _, fn := range bundle.Functions() {
		if err := b.RegisterFunction(fn); err != nil {
			for _, name := range done {
				// Nothing can be in flight before Connect.
				_, _ = b.registry.Unregister(context.Background(), name)
			}
			return err
		}
		done = append(done, fn.Name)
	}
	return nil
}

// Unregister removes a function and waits for its in-flight invocations to
// finish before releasing a foreign handle. If ctx ends first the function
// stays removed and its handle is released at Shutdown.
func (b *Bridge) Unregister(ctx context.Context, name string) error {
	if err := b.require("unregister", entities.PhaseInitialized, entities.PhaseConnected); err != nil {
		return err
	}

	entry, err := b.registry.Unregister(ctx, name)
	if err != nil {
		var notFound *errors.NotFoundError
		if stdErrors.As(err, &notFound) {
			return err
		}
		if t, ok := entry.Target.(entities.ForeignTarget); ok {
			b.mu.Lock()
			b.orphans = append(b.orphans, t.Handle)
			b.mu.Unlock()
		}
		b.logger.Warn("unregistered function still in flight",
			slog.String("function", name), slog.Any("error", err))
		return err
	}

	if t, ok := entry.Target.(entities.ForeignTarget); ok {
		b.release(ctx, name, t.Handle)
	}
	b.logger.Debug("function unregistered", slog.String("function", name))
	return nil
}

// Connect freezes the registry and returns the machine description that is
// sent to the remote side. A machine name is required.
func (b *Bridge) Connect() (entities.MachineDescription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.require("connect", entities.PhaseInitialized); err != nil {
		return entities.MachineDescription{}, err
	}
	if b.name == "" {
		return entities.MachineDescription{}, &errors.ConfigError{
			Field: "name",
			Err:   stdErrors.New("machine name must be set before connecting"),
		}
	}

	b.registry.Freeze()
	b.setPhase(entities.PhaseConnected)
	desc := b.describe()
	b.logger.Info("bridge connected",
		slog.String("machine", b.name),
		slog.Int("functions", len(desc.Functions)))
	return desc, nil
}

// Describe returns the current machine description.
func (b *Bridge) Describe() entities.MachineDescription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.describe()
}

func (b *Bridge) describe() entities.MachineDescription {
	entries := b.registry.Entries()
	desc := entities.MachineDescription{
		Name:        b.name,
		WireVersion: wireformat.Version,
		Functions:   make([]entities.FunctionDescription, 0, len(entries)),
	}
	for _, e := range entries {
		desc.Functions = append(desc.Functions, e.Describe())
	}
	return desc
}

// ListFunctions returns the registered function names in sorted order.
func (b *Bridge) ListFunctions() []string {
	return b.registry.List()
}

// Lookup returns the entry registered under name.
func (b *Bridge) Lookup(name string) (entities.FunctionEntry, error) {
	return b.registry.Lookup(name)
}

// Invoke calls name with args. Arguments are checked against the declared
// parameters before dispatch and results against the declared returns after.
func (b *Bridge) Invoke(ctx context.Context, name string, args []entities.Value) ([]entities.Value, error) {
	if err := b.require("invoke", entities.PhaseConnected); err != nil {
		return nil, err
	}

	entry, release, err := b.registry.Acquire(name)
	if err != nil {
		var notFound *errors.NotFoundError
		if stdErrors.As(err, &notFound) {
			// Shutdown empties the registry; report the phase, not the name.
			if err := b.require("invoke", entities.PhaseConnected); err != nil {
				return nil, err
			}
			return nil, &errors.UnknownFunctionError{Name: name}
		}
		return nil, err
	}
	defer release()

	// Shutdown may have started between the phase check and Acquire.
	if err := b.require("invoke", entities.PhaseConnected); err != nil {
		return nil, err
	}

	if err := checkArguments(entry, args); err != nil {
		return nil, err
	}

	var results []entities.Value
	switch t := entry.Target.(type) {
	case entities.LocalTarget:
		results, err = b.callLocal(ctx, entry.Name, t.Fn, args)
	case entities.ForeignTarget:
		results, err = b.callForeign(ctx, entry, t.Handle, args)
	default:
		err = fmt.Errorf("function %q has no invocation target", name)
	}
	if err != nil {
		return nil, err
	}

	if err := checkResults(entry, results); err != nil {
		return nil, err
	}
	return results, nil
}

func checkArguments(entry entities.FunctionEntry, args []entities.Value) error {
	params := entry.Signature.Parameters
	if len(args) != len(params) {
		return &errors.ArityMismatchError{Function: entry.Name, Expected: len(params), Actual: len(args)}
	}
	for i, p := range params {
		if args[i].Type() != p.Type {
			return &errors.TypeMismatchError{Function: entry.Name, Index: i, Expected: p.Type, Actual: args[i].Type()}
		}
	}
	return nil
}

func checkResults(entry entities.FunctionEntry, results []entities.Value) error {
	returns := entry.Signature.Returns
	if len(results) != len(returns) {
		return &errors.ResultContractError{
			Function: entry.Name,
			Reason:   fmt.Sprintf("returned %d results, declared %d", len(results), len(returns)),
		}
	}
	for i, r := range returns {
		if results[i].Type() != r.Type {
			return &errors.ResultContractError{
				Function: entry.Name,
				Reason:   fmt.Sprintf("result %d (%s) is %s, declared %s", i, r.Name, results[i].Type(), r.Type),
			}
		}
	}
	return nil
}

func (b *Bridge) callLocal(ctx context.Context, name string, fn entities.LocalFunc, args []entities.Value) ([]entities.Value, error) {
	hc := hostfuncs.NewHostContext(ctx, name)
	results, err := hostfuncs.Chain(fn, b.middleware...)(hc, args)
	if err != nil {
		var callee *errors.CalleeError
		if stdErrors.As(err, &callee) {
			return nil, err
		}
		return nil, &errors.CalleeError{Function: name, Err: err}
	}
	return results, nil
}

func (b *Bridge) callForeign(ctx context.Context, entry entities.FunctionEntry, handle entities.Handle, args []entities.Value) ([]entities.Value, error) {
	if b.invoker == nil {
		return nil, &errors.NativeCallError{
			Handle: uint64(handle),
			Code:   errors.CodeInvalidHandle,
			Err:    stdErrors.New("no native invoker configured"),
		}
	}

	payload, err := wireformat.EncodeValues(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments for %q: %w", entry.Name, err)
	}
	if len(payload) > b.config.MaxPayloadSize {
		return nil, &errors.NativeCallError{
			Handle: uint64(handle),
			Code:   errors.CodeTransport,
			Err:    &errors.MemoryError{Requested: len(payload), Limit: b.config.MaxPayloadSize},
		}
	}

	out, err := b.invoker.Invoke(ctx, handle, payload)
	if err != nil {
		var nativeErr *errors.NativeCallError
		if stdErrors.As(err, &nativeErr) {
			return nil, err
		}
		return nil, &errors.NativeCallError{Handle: uint64(handle), Code: errors.CodeTransport, Err: err}
	}

	results, err := wireformat.DecodeValues(out, entry.Signature.ReturnTypes())
	if err != nil {
		return nil, &errors.ResultContractError{Function: entry.Name, Err: err}
	}
	return results, nil
}

// Shutdown removes every function, waits for in-flight invocations within
// the configured shutdown timeout and releases all foreign handles. It is
// permitted from any phase and always ends in Terminated. Release failures
// are logged; only a drain timeout is returned.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Phase() == entities.PhaseTerminated {
		return nil
	}
	b.setPhase(entities.PhaseShuttingDown)

	drainCtx := ctx
	if b.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(ctx, b.config.ShutdownTimeout)
		defer cancel()
	}

	entries, drainErr := b.registry.Drain(drainCtx)
	if drainErr != nil {
		b.logger.Warn("shutdown did not drain all invocations", slog.Any("error", drainErr))
	}

	releaseCtx := context.WithoutCancel(ctx)
	for _, e := range entries {
		if t, ok := e.Target.(entities.ForeignTarget); ok {
			b.release(releaseCtx, e.Name, t.Handle)
		}
	}
	for _, h := range b.orphans {
		b.release(releaseCtx, "", h)
	}
	b.orphans = nil

	b.setPhase(entities.PhaseTerminated)
	b.logger.Info("bridge terminated", slog.String("machine", b.name), slog.Int("functions", len(entries)))
	return drainErr
}

func (b *Bridge) release(ctx context.Context, name string, h entities.Handle) {
	if b.invoker == nil {
		return
	}
	if err := b.invoker.Release(ctx, h); err != nil {
		b.logger.Error("failed to release foreign handle",
			slog.String("function", name),
			slog.Uint64("handle", uint64(h)),
			slog.Any("error", err))
	}
}
