package wazero

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/internal/abi"
)

var packedSignature = []api.ValueType{api.ValueTypeI64}

type invokerConfig struct {
	logger     *slog.Logger
	maxPayload int
}

// InvokerOption configures an Invoker.
type InvokerOption func(*invokerConfig)

// WithInvokerLogger sets the logger for released handles and cleanup failures.
func WithInvokerLogger(l *slog.Logger) InvokerOption {
	return func(c *invokerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxPayloadSize caps encoded arguments and results.
func WithMaxPayloadSize(n int) InvokerOption {
	return func(c *invokerConfig) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// boundModule serializes calls into one module instance.
type boundModule struct {
	guest *abi.Guest
	mu    sync.Mutex
}

type export struct {
	module *boundModule
	fn     api.Function
	name   string
}

// Invoker serves foreign targets backed by guest exports. Each export takes
// the packed arguments buffer and returns a packed results buffer.
type Invoker struct {
	exports map[entities.Handle]export
	modules map[api.Module]*boundModule
	config  invokerConfig
	mu      sync.RWMutex
	next    entities.Handle
}

var _ ports.NativeInvoker = (*Invoker)(nil)

// NewInvoker creates an Invoker with no bound exports.
func NewInvoker(opts ...InvokerOption) *Invoker {
	cfg := invokerConfig{
		logger:     slog.Default(),
		maxPayload: hostfuncs.DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Invoker{
		exports: make(map[entities.Handle]export),
		modules: make(map[api.Module]*boundModule),
		config:  cfg,
	}
}

// Bind issues a handle for the export name of mod. The export must have the
// signature (i64) -> i64 and mod must follow the allocation convention.
func (i *Invoker) Bind(mod api.Module, name string) (entities.Handle, error) {
	fn := mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("module %q does not export %q", mod.Name(), name)
	}
	def := fn.Definition()
	if !slices.Equal(def.ParamTypes(), packedSignature) || !slices.Equal(def.ResultTypes(), packedSignature) {
		return 0, fmt.Errorf("export %q of %q must have signature (i64) -> i64", name, mod.Name())
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	bm, ok := i.modules[mod]
	if !ok {
		guest, err := abi.NewGuest(mod)
		if err != nil {
			return 0, fmt.Errorf("module %q: %w", mod.Name(), err)
		}
		bm = &boundModule{guest: guest}
		i.modules[mod] = bm
	}

	i.next++
	i.exports[i.next] = export{module: bm, fn: fn, name: name}
	return i.next, nil
}

// Invoke writes args into guest memory, calls the export and copies the
// results out. Both buffers are handed back to the guest allocator.
func (i *Invoker) Invoke(ctx context.Context, handle entities.Handle, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &errors.NativeCallError{Handle: uint64(handle), Code: errors.CodeCanceled, Err: err}
	}
	if len(args) > i.config.maxPayload {
		return nil, i.tooLarge(handle, len(args))
	}

	i.mu.RLock()
	e, ok := i.exports[handle]
	i.mu.RUnlock()
	if !ok {
		return nil, &errors.NativeCallError{
			Handle: uint64(handle),
			Code:   errors.CodeInvalidHandle,
			Err:    fmt.Errorf("handle %d is not bound", handle),
		}
	}

	e.module.mu.Lock()
	defer e.module.mu.Unlock()

	guest := e.module.guest
	if guest.Module().IsClosed() {
		return nil, &errors.NativeCallError{
			Handle: uint64(handle),
			Code:   errors.CodeInvalidHandle,
			Err:    fmt.Errorf("module %q is closed", guest.Module().Name()),
		}
	}

	in, err := guest.Write(ctx, args)
	if err != nil {
		return nil, i.fail(ctx, handle, err)
	}
	defer i.free(ctx, guest, e.name, in)

	res, err := e.fn.Call(ctx, in)
	if err != nil {
		return nil, i.fail(ctx, handle, err)
	}
	if len(res) == 0 || res[0] == 0 {
		return nil, &errors.NativeCallError{Handle: uint64(handle), Code: errors.CodeNullResponse}
	}

	packed := res[0]
	defer i.free(ctx, guest, e.name, packed)

	_, length, err := abi.UnpackPtrLen(packed)
	if err != nil {
		return nil, i.fail(ctx, handle, err)
	}
	if int(length) > i.config.maxPayload {
		return nil, i.tooLarge(handle, int(length))
	}

	out, err := guest.Read(packed)
	if err != nil {
		return nil, i.fail(ctx, handle, err)
	}
	return out, nil
}

func (i *Invoker) free(ctx context.Context, guest *abi.Guest, name string, packed uint64) {
	if guest.Module().IsClosed() {
		return
	}
	if err := guest.Free(context.WithoutCancel(ctx), packed); err != nil {
		i.config.logger.Warn("failed to free guest buffer", slog.String("export", name), slog.Any("error", err))
	}
}

func (i *Invoker) tooLarge(handle entities.Handle, n int) error {
	return &errors.NativeCallError{
		Handle: uint64(handle),
		Code:   errors.CodeTransport,
		Err:    &errors.MemoryError{Requested: n, Limit: i.config.maxPayload},
	}
}

// fail classifies an error from the guest call path.
func (i *Invoker) fail(ctx context.Context, handle entities.Handle, err error) error {
	code := errors.CodeGuestTrap

	var exitErr *sys.ExitError
	switch {
	case stdErrors.As(err, &exitErr) &&
		(exitErr.ExitCode() == sys.ExitCodeContextCanceled || exitErr.ExitCode() == sys.ExitCodeDeadlineExceeded):
		code = errors.CodeCanceled
	case ctx.Err() != nil:
		code = errors.CodeCanceled
	case stdErrors.Is(err, abi.ErrOutOfBounds), stdErrors.Is(err, abi.ErrNullPointer):
		code = errors.CodeMemoryAccess
	}
	return &errors.NativeCallError{Handle: uint64(handle), Code: code, Err: err}
}

// Release unbinds handle. The module stays instantiated; it is owned by the
// Runtime. Unknown handles are ignored.
func (i *Invoker) Release(_ context.Context, handle entities.Handle) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.exports[handle]
	if !ok {
		return nil
	}
	delete(i.exports, handle)

	inUse := false
	for _, other := range i.exports {
		if other.module == e.module {
			inUse = true
			break
		}
	}
	if !inUse {
		delete(i.modules, e.module.guest.Module())
	}

	i.config.logger.Debug("released guest export",
		slog.Uint64("handle", uint64(handle)),
		slog.String("export", e.name))
	return nil
}

// Len returns the number of bound handles.
func (i *Invoker) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.exports)
}
