package entities

import (
	"context"
	"fmt"
	"strings"
)

// Parameter is one named, typed slot of a parameter or return list.
type Parameter struct {
	Name string    `json:"name" validate:"required"`
	Type ValueType `json:"type" validate:"valuetype"`
}

// Param is shorthand for building a Parameter.
func Param(name string, t ValueType) Parameter {
	return Parameter{Name: name, Type: t}
}

// Signature is the positional contract of a function.
type Signature struct {
	Parameters []Parameter `json:"parameters" validate:"dive"`
	Returns    []Parameter `json:"returns" validate:"dive"`
}

// ParameterTypes returns the declared parameter types in order.
func (s Signature) ParameterTypes() []ValueType {
	return paramTypes(s.Parameters)
}

// ReturnTypes returns the declared return types in order.
func (s Signature) ReturnTypes() []ValueType {
	return paramTypes(s.Returns)
}

func paramTypes(params []Parameter) []ValueType {
	out := make([]ValueType, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// String renders the signature as "(a int, b int) -> (product int)".
func (s Signature) String() string {
	return "(" + joinParams(s.Parameters) + ") -> (" + joinParams(s.Returns) + ")"
}

func joinParams(params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %s", p.Name, p.Type)
	}
	return strings.Join(parts, ", ")
}

// LocalFunc is a host-side implementation of a registered function.
type LocalFunc func(ctx context.Context, args []Value) ([]Value, error)

// Handle is an opaque token issued by a boundary layer for a foreign function.
type Handle uint64

// Target is where an invocation is dispatched. It is either a LocalTarget
// or a ForeignTarget.
type Target interface {
	isTarget()
}

// LocalTarget dispatches to a Go closure.
type LocalTarget struct {
	Fn LocalFunc
}

func (LocalTarget) isTarget() {}

// ForeignTarget dispatches through the native-call primitive.
type ForeignTarget struct {
	Handle Handle
}

func (ForeignTarget) isTarget() {}

// Local wraps fn in a LocalTarget.
func Local(fn LocalFunc) Target {
	return LocalTarget{Fn: fn}
}

// Foreign wraps h in a ForeignTarget.
func Foreign(h Handle) Target {
	return ForeignTarget{Handle: h}
}

// FunctionEntry is a registered function.
type FunctionEntry struct {
	Target    Target
	Name      string
	Signature Signature
}

// IsForeign reports whether the entry dispatches through a handle.
func (e FunctionEntry) IsForeign() bool {
	_, ok := e.Target.(ForeignTarget)
	return ok
}

// Describe returns the connect-time description of the entry.
func (e FunctionEntry) Describe() FunctionDescription {
	return FunctionDescription{
		Name:       e.Name,
		Parameters: describeParams(e.Signature.Parameters),
		Returns:    describeParams(e.Signature.Returns),
	}
}

func describeParams(params []Parameter) []ParameterDescription {
	out := make([]ParameterDescription, len(params))
	for i, p := range params {
		out[i] = ParameterDescription{Name: p.Name, Type: p.Type.String()}
	}
	return out
}
