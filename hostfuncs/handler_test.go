package hostfuncs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

func addSig() entities.Signature {
	return entities.Signature{
		Parameters: []entities.Parameter{
			entities.Param("a", entities.TypeInt64),
			entities.Param("b", entities.TypeInt64),
		},
		Returns: []entities.Parameter{entities.Param("sum", entities.TypeInt64)},
	}
}

func TestNewCodecHandler(t *testing.T) {
	var seenName string
	add := func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
		if hc, ok := ctx.(HostContext); ok {
			seenName = hc.FunctionName()
		}
		a, _ := args[0].AsInt64()
		b, _ := args[1].AsInt64()
		return []entities.Value{entities.NewInt64(a + b)}, nil
	}
	handler := NewCodecHandler("add", addSig(), add)

	t.Run("success", func(t *testing.T) {
		payload, err := wireformat.EncodeValues([]entities.Value{entities.NewInt64(40), entities.NewInt64(2)})
		require.NoError(t, err)

		out, err := handler(context.Background(), payload)
		require.NoError(t, err)

		results, err := wireformat.DecodeValues(out, []entities.ValueType{entities.TypeInt64})
		require.NoError(t, err)
		assert.True(t, entities.NewInt64(42).Equal(results[0]))
		assert.Equal(t, "add", seenName)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		payload, err := wireformat.EncodeValues([]entities.Value{entities.NewInt32(1), entities.NewInt32(2)})
		require.NoError(t, err)

		_, err = handler(context.Background(), payload)
		var malformed *domainerrors.MalformedValueError
		assert.True(t, errors.As(err, &malformed))
	})
}

func TestNewCodecHandler_ResultTypesChecked(t *testing.T) {
	wrong := func(context.Context, []entities.Value) ([]entities.Value, error) {
		return []entities.Value{entities.NewString("not a number")}, nil
	}
	handler := NewCodecHandler("add", addSig(), wrong)

	payload, err := wireformat.EncodeValues([]entities.Value{entities.NewInt64(1), entities.NewInt64(2)})
	require.NoError(t, err)

	_, err = handler(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared [long]")
}

func TestNewCodecHandler_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	failing := func(context.Context, []entities.Value) ([]entities.Value, error) {
		return nil, boom
	}

	payload, err := wireformat.EncodeValues(nil)
	require.NoError(t, err)

	_, err = NewCodecHandler("nothing", entities.Signature{}, failing)(context.Background(), payload)
	assert.ErrorIs(t, err, boom)
}
