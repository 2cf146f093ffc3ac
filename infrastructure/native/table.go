// Package native implements the native-call primitive for foreign functions
// that live in the same process: a table of byte handlers addressed by
// opaque handles.
package native

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
)

// DefaultMaxHandles caps the number of live handles in a table.
const DefaultMaxHandles = 4096

type tableConfig struct {
	logger     *slog.Logger
	maxHandles int
	maxPayload int
}

func defaultTableConfig() tableConfig {
	return tableConfig{
		logger:     slog.Default(),
		maxHandles: DefaultMaxHandles,
		maxPayload: hostfuncs.DefaultMaxRequestSize,
	}
}

// TableOption configures a Table.
type TableOption func(*tableConfig)

// WithMaxHandles caps the number of live handles.
func WithMaxHandles(n int) TableOption {
	return func(c *tableConfig) {
		if n > 0 {
			c.maxHandles = n
		}
	}
}

// WithMaxPayloadSize caps encoded arguments and results.
func WithMaxPayloadSize(n int) TableOption {
	return func(c *tableConfig) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// WithLogger sets the logger used for released and failing handles.
func WithLogger(l *slog.Logger) TableOption {
	return func(c *tableConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

type binding struct {
	handler hostfuncs.ByteHandler
	name    string
}

// Table owns a set of handles, each bound to a byte handler. Handles are
// never reused; 0 is never issued.
type Table struct {
	bindings map[entities.Handle]binding
	config   tableConfig
	mu       sync.RWMutex
	next     entities.Handle
}

var _ ports.NativeInvoker = (*Table)(nil)

// NewTable creates an empty handle table.
func NewTable(opts ...TableOption) *Table {
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Table{
		bindings: make(map[entities.Handle]binding),
		config:   cfg,
	}
}

// Bind issues a new handle for handler. name is used only for diagnostics.
func (t *Table) Bind(name string, handler hostfuncs.ByteHandler) (entities.Handle, error) {
	if handler == nil {
		return 0, fmt.Errorf("cannot bind %q: handler is nil", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.bindings) >= t.config.maxHandles {
		return 0, fmt.Errorf("cannot bind %q: handle table full (%d handles)", name, t.config.maxHandles)
	}
	t.next++
	t.bindings[t.next] = binding{name: name, handler: handler}
	return t.next, nil
}

// BindRegistry issues one handle per handler of reg, keyed by name. Either
// every handler is bound or none is.
func (t *Table) BindRegistry(reg *hostfuncs.HandlerRegistry) (map[string]entities.Handle, error) {
	handles := make(map[string]entities.Handle, len(reg.Names()))
	for _, name := range reg.Names() {
		h, _ := reg.Handler(name)
		handle, err := t.Bind(name, h)
		if err != nil {
			for _, bound := range handles {
				_ = t.Release(context.Background(), bound)
			}
			return nil, err
		}
		handles[name] = handle
	}
	return handles, nil
}

// Invoke calls the handler bound to handle.
func (t *Table) Invoke(ctx context.Context, handle entities.Handle, args []byte) (out []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, &errors.NativeCallError{Handle: uint64(handle), Code: errors.CodeCanceled, Err: err}
	}
	if len(args) > t.config.maxPayload {
		return nil, t.tooLarge(handle, len(args))
	}

	t.mu.RLock()
	b, ok := t.bindings[handle]
	t.mu.RUnlock()
	if !ok {
		return nil, &errors.NativeCallError{
			Handle: uint64(handle),
			Code:   errors.CodeInvalidHandle,
			Err:    fmt.Errorf("handle %d is not bound", handle),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			t.config.logger.ErrorContext(ctx, "native handler panicked",
				slog.String("function", b.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			out = nil
			err = &errors.NativeCallError{Handle: uint64(handle), Code: errors.CodeGuestTrap, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, err = b.handler(ctx, args)
	if err != nil {
		code := errors.CodeGuestTrap
		if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
			code = errors.CodeCanceled
		}
		return nil, &errors.NativeCallError{Handle: uint64(handle), Code: code, Err: err}
	}
	if out == nil {
		return nil, &errors.NativeCallError{Handle: uint64(handle), Code: errors.CodeNullResponse}
	}
	if len(out) > t.config.maxPayload {
		return nil, t.tooLarge(handle, len(out))
	}
	return out, nil
}

func (t *Table) tooLarge(handle entities.Handle, n int) error {
	return &errors.NativeCallError{
		Handle: uint64(handle),
		Code:   errors.CodeTransport,
		Err:    &errors.MemoryError{Requested: n, Limit: t.config.maxPayload},
	}
}

// Release unbinds handle. Unknown handles are ignored.
func (t *Table) Release(_ context.Context, handle entities.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.bindings[handle]; ok {
		delete(t.bindings, handle)
		t.config.logger.Debug("released native handle", slog.Uint64("handle", uint64(handle)), slog.String("function", b.name))
	}
	return nil
}

// ReleaseAll unbinds every handle.
func (t *Table) ReleaseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.bindings)
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}
