package wazero

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/internal/abi"
	"github.com/frontrow-dev/frontrow-sdk/internal/testutil"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

func demoRegistry(t *testing.T) *hostfuncs.HandlerRegistry {
	t.Helper()
	reg, err := hostfuncs.NewRegistry(hostfuncs.WithBundle(hostfuncs.DemoBundle(nil)))
	require.NoError(t, err)
	return reg
}

// instantiateGuest loads the test guest into a fresh runtime.
func instantiateGuest(t *testing.T, opts ...RuntimeOption) (*Runtime, api.Module) {
	t.Helper()
	ctx := context.Background()

	opts = append([]RuntimeOption{WithCallbacks(demoRegistry(t))}, opts...)
	rt, err := NewRuntime(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, "test-machine", testutil.GuestModule())
	require.NoError(t, err)
	return rt, mod
}

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	assert.Equal(t, DefaultHostModule, cfg.ModuleName)
	assert.Equal(t, uint32(hostfuncs.DefaultMaxRequestSize), cfg.MaxRequestSize)
	assert.NotNil(t, cfg.Logger)
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithModuleName("custom_module")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithCustomHandler(CustomHandler{Name: "test_handler"})(&cfg)
	WithAdapterLogger(nil)(&cfg)

	assert.Equal(t, "custom_module", cfg.ModuleName)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	require.Len(t, cfg.CustomHandlers, 1)
	assert.Equal(t, "test_handler", cfg.CustomHandlers[0].Name)
	assert.NotNil(t, cfg.Logger)
}

func TestHandleRegistryCall(t *testing.T) {
	_, mod := instantiateGuest(t)
	ctx := context.Background()
	reg := demoRegistry(t)

	guest, err := abi.NewGuest(mod)
	require.NoError(t, err)

	request, err := wireformat.EncodeValues([]entities.Value{entities.NewInt32(6), entities.NewInt32(7)})
	require.NoError(t, err)
	packed, err := guest.Write(ctx, request)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		reply := handleRegistryCall(ctx, mod, packed, reg, "multiply", defaultAdapterConfig())
		require.NotZero(t, reply)

		data, err := guest.Read(reply)
		require.NoError(t, err)
		results, err := wireformat.DecodeValues(data, []entities.ValueType{entities.TypeInt32})
		require.NoError(t, err)
		testutil.AssertValuesEqual(t, []entities.Value{entities.NewInt32(42)}, results)
	})

	t.Run("unknown function", func(t *testing.T) {
		assert.Zero(t, handleRegistryCall(ctx, mod, packed, reg, "divide", defaultAdapterConfig()))
	})

	t.Run("request too large", func(t *testing.T) {
		cfg := defaultAdapterConfig()
		cfg.MaxRequestSize = 4
		assert.Zero(t, handleRegistryCall(ctx, mod, packed, reg, "multiply", cfg))
	})

	t.Run("malformed request", func(t *testing.T) {
		bad, err := guest.Write(ctx, []byte{1, 0, 0, 0, 0x08})
		require.NoError(t, err)
		assert.Zero(t, handleRegistryCall(ctx, mod, bad, reg, "multiply", defaultAdapterConfig()))
	})

	t.Run("null pointer with length", func(t *testing.T) {
		assert.Zero(t, handleRegistryCall(ctx, mod, 16, reg, "multiply", defaultAdapterConfig()))
	})
}
