package hostfuncs

import (
	"context"
	"fmt"
	"sort"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// HandlerRegistry is an immutable collection of named byte handlers: a
// function library as the far side of the boundary sees it. Once created
// via NewRegistry, handlers cannot be added or removed.
type HandlerRegistry struct {
	handlers   map[string]ByteHandler
	signatures map[string]entities.Signature
	names      []string // sorted for consistent iteration
}

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

type registryBuilder struct {
	handlers   map[string]ByteHandler
	functions  map[string]Function
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any name is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(DemoBundle(os.Stdout)),
//	    WithByteHandler("raw", rawHandler),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers:  make(map[string]ByteHandler),
		functions: make(map[string]Function),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	handlers := make(map[string]ByteHandler, len(b.handlers)+len(b.functions))
	signatures := make(map[string]entities.Signature, len(b.functions))
	for name, handler := range b.handlers {
		handlers[name] = handler
	}
	// Middleware applies to local functions before they are wrapped in the codec.
	for name, fn := range b.functions {
		handlers[name] = NewCodecHandler(name, fn.Signature, Chain(fn.Fn, b.middleware...))
		signatures[name] = fn.Signature
	}

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	return &HandlerRegistry{
		handlers:   handlers,
		signatures: signatures,
		names:      names,
	}, nil
}

// Invoke dispatches an encoded call by name.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, &errors.UnknownFunctionError{Name: name}
	}
	return handler(HostContextFrom(ctx, name), payload)
}

// Handler returns the handler registered under name.
func (r *HandlerRegistry) Handler(name string) (ByteHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Signature returns the declared signature of a function added through
// WithFunction or WithBundle. Raw byte handlers have none.
func (r *HandlerRegistry) Signature(name string) (entities.Signature, bool) {
	s, ok := r.signatures[name]
	return s, ok
}

// Has returns true if a handler with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of all registered handler names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

func (b *registryBuilder) claim(name string) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate handler name: %q", name)
	}
	if _, exists := b.functions[name]; exists {
		return fmt.Errorf("duplicate handler name: %q", name)
	}
	return nil
}

// WithByteHandler registers a raw ByteHandler with the given name.
func WithByteHandler(name string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.claim(name); err != nil {
			b.errors = append(b.errors, err)
			return
		}
		b.handlers[name] = handler
	}
}

// WithFunction registers a local function behind the value codec.
func WithFunction(fn Function) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.claim(fn.Name); err != nil {
			b.errors = append(b.errors, err)
			return
		}
		if fn.Fn == nil {
			b.errors = append(b.errors, fmt.Errorf("function %q has no implementation", fn.Name))
			return
		}
		b.functions[fn.Name] = fn
	}
}

// WithBundle registers every function of a bundle.
func WithBundle(bundle FunctionBundle) RegistryOption {
	return func(b *registryBuilder) {
		for _, fn := range bundle.Functions() {
			WithFunction(fn)(b)
		}
	}
}

// WithMiddleware adds middleware around every local function.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
