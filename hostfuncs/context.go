package hostfuncs

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// HostContext wraps a standard context.Context with invocation-specific helpers.
// It carries the invoked function name and a unique invocation id, and lets
// middleware share request-scoped values without growing the context chain.
type HostContext interface {
	context.Context

	// FunctionName returns the name of the function being invoked.
	FunctionName() string

	// InvocationID returns the unique id of this invocation.
	InvocationID() string

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values       map[any]any
	funcName     string
	invocationID string
	mu           sync.RWMutex
}

// NewHostContext creates a new HostContext with a fresh invocation id.
func NewHostContext(ctx context.Context, funcName string) HostContext {
	return &hostContext{
		Context:      ctx,
		funcName:     funcName,
		invocationID: uuid.NewString(),
		values:       make(map[any]any),
	}
}

func (c *hostContext) FunctionName() string {
	return c.funcName
}

func (c *hostContext) InvocationID() string {
	return c.invocationID
}

func (c *hostContext) SetValue(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom returns ctx itself when it already is a HostContext,
// otherwise a new HostContext wrapping it.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName)
}
