package hostfuncs

import (
	"context"
	"fmt"
	"slices"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

// ByteHandler accepts an encoded argument sequence and returns an encoded
// result sequence. It is the shape of a function as seen from the far side
// of the native-call boundary.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewCodecHandler wraps a local function into a ByteHandler. Arguments are
// decoded against sig's parameter types and results are encoded after
// checking them against its return types.
//
// Usage:
//
//	handler := hostfuncs.NewCodecHandler("multiply", sig, multiply)
//	out, err := handler(ctx, encodedArgs)
func NewCodecHandler(name string, sig entities.Signature, fn entities.LocalFunc) ByteHandler {
	params := sig.ParameterTypes()
	returns := sig.ReturnTypes()
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		args, err := wireformat.DecodeValues(payload, params)
		if err != nil {
			return nil, fmt.Errorf("failed to decode arguments for %s: %w", name, err)
		}

		results, err := fn(HostContextFrom(ctx, name), args)
		if err != nil {
			return nil, err
		}

		if got := entities.Types(results); !slices.Equal(got, returns) {
			return nil, fmt.Errorf("%s returned %v, declared %v", name, got, returns)
		}

		out, err := wireformat.EncodeValues(results)
		if err != nil {
			return nil, fmt.Errorf("failed to encode results for %s: %w", name, err)
		}
		return out, nil
	}
}
