package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var machineNameKey = &contextKey{name: "machine_name"}

// WithMachineName adds the machine name to the context. Host functions use
// it to attribute guest log records.
func WithMachineName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, machineNameKey, name)
}

// MachineNameFromContext retrieves the machine name from the context.
func MachineNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(machineNameKey).(string)
	return name, ok
}

// GetMachineName extracts the machine name from context, falling back to the module name.
func GetMachineName(ctx context.Context, mod api.Module) string {
	if name, ok := MachineNameFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
