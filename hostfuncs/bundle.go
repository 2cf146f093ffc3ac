package hostfuncs

import (
	"context"
	"fmt"
	"io"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// Function is a local function together with the signature it is
// registered under.
type Function struct {
	Fn        entities.LocalFunc
	Name      string
	Signature entities.Signature
}

// FunctionBundle is a pre-configured set of related functions.
// Bundles allow registering multiple functions at once.
type FunctionBundle interface {
	// Functions returns the bundled functions in a stable order.
	Functions() []Function
}

type staticBundle struct {
	functions []Function
}

func (b *staticBundle) Functions() []Function {
	return b.functions
}

// NewBundle returns a bundle holding the given functions.
func NewBundle(functions ...Function) FunctionBundle {
	return &staticBundle{functions: functions}
}

type compositeBundle struct {
	bundles []FunctionBundle
}

func (b *compositeBundle) Functions() []Function {
	var result []Function
	for _, bundle := range b.bundles {
		result = append(result, bundle.Functions()...)
	}
	return result
}

// MergeBundles combines bundles. Name clashes are reported when the merged
// bundle is registered, not here.
func MergeBundles(bundles ...FunctionBundle) FunctionBundle {
	return &compositeBundle{bundles: bundles}
}

func sig(params, returns []entities.Parameter) entities.Signature {
	return entities.Signature{Parameters: params, Returns: returns}
}

func params(p ...entities.Parameter) []entities.Parameter { return p }

type demoConfig struct {
	maxPayload int
}

// DemoOption configures DemoBundle.
type DemoOption func(*demoConfig)

// WithSequenceLimit caps the encoded size in bytes of the array sequence may
// return.
func WithSequenceLimit(n int) DemoOption {
	return func(c *demoConfig) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// DemoBundle returns the example machine functions:
//
//	print(name string) -> ()
//	multiply(x int, y int) -> (product int)
//	average(x double[]) -> (average double)
//	sequence(n int) -> (seq int[])
//	count_bools(values bool[]) -> (trues int, falses int)
//
// print writes its greeting to out. sequence refuses results larger than the
// payload limit, see WithSequenceLimit.
func DemoBundle(out io.Writer, opts ...DemoOption) FunctionBundle {
	if out == nil {
		out = io.Discard
	}
	cfg := demoConfig{maxPayload: entities.DefaultConfig().MaxPayloadSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewBundle(
		Function{
			Name:      "print",
			Signature: sig(params(entities.Param("name", entities.TypeString)), nil),
			Fn: func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				name, _ := args[0].AsString()
				if _, err := fmt.Fprintf(out, "Hello from callback, %s!\n", name); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		Function{
			Name: "multiply",
			Signature: sig(
				params(entities.Param("x", entities.TypeInt32), entities.Param("y", entities.TypeInt32)),
				params(entities.Param("product", entities.TypeInt32)),
			),
			Fn: func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				x, _ := args[0].AsInt32()
				y, _ := args[1].AsInt32()
				return []entities.Value{entities.NewInt32(x * y)}, nil
			},
		},
		Function{
			Name: "average",
			Signature: sig(
				params(entities.Param("x", entities.TypeFloatArray)),
				params(entities.Param("average", entities.TypeFloat64)),
			),
			Fn: func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				xs, _ := args[0].AsFloat64Array()
				var acc float64
				for _, x := range xs {
					acc += x
				}
				avg := 0.0
				if len(xs) > 0 {
					avg = acc / float64(len(xs))
				}
				return []entities.Value{entities.NewFloat64(avg)}, nil
			},
		},
		Function{
			Name: "sequence",
			Signature: sig(
				params(entities.Param("n", entities.TypeInt32)),
				params(entities.Param("seq", entities.TypeIntArray)),
			),
			Fn: func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				n, _ := args[0].AsInt32()
				if size := int64(n) * 4; size > int64(cfg.maxPayload) {
					return nil, &errors.CalleeError{
						Function: "sequence",
						Err:      &errors.MemoryError{Requested: int(size), Limit: cfg.maxPayload},
					}
				}
				seq := make([]int32, max(n, 0))
				for i := range seq {
					seq[i] = int32(i)
				}
				return []entities.Value{entities.NewIntArray(seq)}, nil
			},
		},
		Function{
			Name: "count_bools",
			Signature: sig(
				params(entities.Param("values", entities.TypeBoolArray)),
				params(entities.Param("trues", entities.TypeInt32), entities.Param("falses", entities.TypeInt32)),
			),
			Fn: func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				values, _ := args[0].AsBoolArray()
				var trues, falses int32
				for _, v := range values {
					if v {
						trues++
					} else {
						falses++
					}
				}
				return []entities.Value{entities.NewInt32(trues), entities.NewInt32(falses)}, nil
			},
		},
	)
}
