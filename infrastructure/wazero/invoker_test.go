package wazero

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/internal/testutil"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

func requireCode(t *testing.T, err error, code domainerrors.NativeCallCode) {
	t.Helper()
	var nativeErr *domainerrors.NativeCallError
	require.True(t, errors.As(err, &nativeErr), "got %v", err)
	assert.Equal(t, code, nativeErr.Code)
}

func encode(t *testing.T, values ...entities.Value) []byte {
	t.Helper()
	data, err := wireformat.EncodeValues(values)
	require.NoError(t, err)
	return data
}

func TestInvoker_Echo(t *testing.T) {
	_, mod := instantiateGuest(t)
	inv := NewInvoker()

	h, err := inv.Bind(mod, "echo")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Len())

	args := encode(t, entities.NewString("round trip"), entities.NewFloatArray([]float64{1.5, -2}))
	out, err := inv.Invoke(context.Background(), h, args)
	require.NoError(t, err)
	assert.Equal(t, args, out)
}

func TestInvoker_RelayCallsBackIntoHost(t *testing.T) {
	_, mod := instantiateGuest(t)
	inv := NewInvoker()

	h, err := inv.Bind(mod, "relay")
	require.NoError(t, err)

	out, err := inv.Invoke(context.Background(), h, encode(t, entities.NewInt32(4), entities.NewInt32(5)))
	require.NoError(t, err)

	results, err := wireformat.DecodeValues(out, []entities.ValueType{entities.TypeInt32})
	require.NoError(t, err)
	testutil.AssertValuesEqual(t, []entities.Value{entities.NewInt32(20)}, results)
}

func TestInvoker_Failures(t *testing.T) {
	_, mod := instantiateGuest(t)
	inv := NewInvoker()
	args := encode(t, entities.NewInt32(1))

	tests := []struct {
		export string
		code   domainerrors.NativeCallCode
	}{
		{"null", domainerrors.CodeNullResponse},
		{"trap", domainerrors.CodeGuestTrap},
		{"oob", domainerrors.CodeMemoryAccess},
	}

	for _, tt := range tests {
		t.Run(tt.export, func(t *testing.T) {
			h, err := inv.Bind(mod, tt.export)
			require.NoError(t, err)

			_, err = inv.Invoke(context.Background(), h, args)
			requireCode(t, err, tt.code)
		})
	}
}

func TestInvoker_GarbageIsReturnedAsIs(t *testing.T) {
	_, mod := instantiateGuest(t)
	inv := NewInvoker()

	h, err := inv.Bind(mod, "garbage")
	require.NoError(t, err)

	out, err := inv.Invoke(context.Background(), h, encode(t))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
}

func TestInvoker_BindRejectsBadExports(t *testing.T) {
	_, mod := instantiateGuest(t)
	inv := NewInvoker()

	_, err := inv.Bind(mod, "missing")
	assert.ErrorContains(t, err, "does not export")

	_, err = inv.Bind(mod, "allocate")
	assert.ErrorContains(t, err, "(i64) -> i64")

	assert.Zero(t, inv.Len())
}

func TestInvoker_ReleaseAndLimits(t *testing.T) {
	_, mod := instantiateGuest(t)
	ctx := context.Background()
	inv := NewInvoker(WithMaxPayloadSize(8))

	h, err := inv.Bind(mod, "echo")
	require.NoError(t, err)

	_, err = inv.Invoke(ctx, h, encode(t, entities.NewInt64(1)))
	requireCode(t, err, domainerrors.CodeTransport)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = inv.Invoke(canceled, h, encode(t))
	requireCode(t, err, domainerrors.CodeCanceled)

	require.NoError(t, inv.Release(ctx, h))
	require.NoError(t, inv.Release(ctx, h))
	assert.Zero(t, inv.Len())

	_, err = inv.Invoke(ctx, h, encode(t))
	requireCode(t, err, domainerrors.CodeInvalidHandle)
}

func TestInvoker_ClosedModule(t *testing.T) {
	_, mod := instantiateGuest(t)
	ctx := context.Background()
	inv := NewInvoker()

	h, err := inv.Bind(mod, "echo")
	require.NoError(t, err)
	require.NoError(t, mod.Close(ctx))

	_, err = inv.Invoke(ctx, h, encode(t))
	requireCode(t, err, domainerrors.CodeInvalidHandle)
}
