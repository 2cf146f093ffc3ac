package ports

import (
	"context"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
)

// FunctionRegistry maps function names to their signatures and targets.
// Reads never block writers; every mutation is atomic with respect to lookups.
type FunctionRegistry interface {
	// Register adds a function. It fails on duplicate names, malformed
	// signatures, or when the registry has been frozen.
	Register(name string, sig entities.Signature, target entities.Target) error

	// Unregister removes a function and waits until no invocation of it is
	// in flight, or ctx ends. The removed entry is returned so its target
	// can be released.
	Unregister(ctx context.Context, name string) (entities.FunctionEntry, error)

	// Lookup returns the entry registered under name.
	Lookup(name string) (entities.FunctionEntry, error)

	// Acquire looks up name and marks one invocation as in flight until
	// release is called.
	Acquire(name string) (entry entities.FunctionEntry, release func(), err error)

	// List returns the registered names in sorted order.
	List() []string

	// Entries returns every registered entry in name order.
	Entries() []entities.FunctionEntry

	// Freeze rejects further registrations.
	Freeze()

	// Drain removes every entry, waiting for in-flight invocations as
	// Unregister does, and returns the removed entries.
	Drain(ctx context.Context) ([]entities.FunctionEntry, error)
}
