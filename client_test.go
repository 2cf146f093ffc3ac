package sdk_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/frontrow-dev/frontrow-sdk"
	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/infrastructure/native"
	"github.com/frontrow-dev/frontrow-sdk/internal/testutil"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

func multiply(_ context.Context, args []entities.Value) ([]entities.Value, error) {
	x, _ := args[0].AsInt32()
	y, _ := args[1].AsInt32()
	return []entities.Value{entities.NewInt32(x * y)}, nil
}

func newClient(t *testing.T, opts ...sdk.ClientOption) *sdk.Client {
	t.Helper()
	opts = append([]sdk.ClientOption{sdk.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	client, err := sdk.InitializeLibrary(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.ShutdownLibrary(context.Background()) })
	return client
}

func TestClient_RegisterAndConnect(t *testing.T) {
	client := newClient(t)
	require.NoError(t, client.SetName("calculator"))
	require.NoError(t, client.RegisterFunction("multiply",
		[][2]string{{"x", "int"}, {"y", "int"}},
		[][2]string{{"product", "int"}},
		multiply))
	require.NoError(t, client.RegisterFunction("noop", nil, nil,
		func(context.Context, []entities.Value) ([]entities.Value, error) { return nil, nil }))

	raw, err := client.ConnectToServer()
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{
		"name": "calculator",
		"wire_version": "1.0.0",
		"functions": [
			{"name": "multiply",
			 "parameters": [{"name": "x", "type": "int"}, {"name": "y", "type": "int"}],
			 "returns": [{"name": "product", "type": "int"}]},
			{"name": "noop", "parameters": [], "returns": []}
		]
	}`, string(raw))

	assert.Equal(t, entities.PhaseConnected, client.Phase())
	assert.Equal(t, []string{"multiply", "noop"}, client.ListFunctions())

	testutil.RequireErrorAs[*domainerrors.PhaseError](t, client.SetName("renamed"))
	err = client.RegisterFunction("late", nil, nil, multiply)
	testutil.RequireErrorAs[*domainerrors.PhaseError](t, err)
}

func TestClient_ConnectRequiresName(t *testing.T) {
	client := newClient(t)

	_, err := client.ConnectToServer()
	configErr := testutil.RequireErrorAs[*domainerrors.ConfigError](t, err)
	assert.Equal(t, "name", configErr.Field)

	configErr = testutil.RequireErrorAs[*domainerrors.ConfigError](t, client.SetName(""))
	assert.Equal(t, "name", configErr.Field)
}

func TestClient_CBORDescription(t *testing.T) {
	client := newClient(t, sdk.WithDescriptionFormat(wireformat.FormatCBOR))
	require.NoError(t, client.SetName("demo"))
	require.NoError(t, client.RegisterBundle(hostfuncs.DemoBundle(nil)))

	raw, err := client.ConnectToServer()
	require.NoError(t, err)

	desc, err := wireformat.UnmarshalDescription(raw, wireformat.FormatCBOR)
	require.NoError(t, err)
	assert.Equal(t, "demo", desc.Name)
	assert.Len(t, desc.Functions, 5)
}

func TestInitializeLibrary_Errors(t *testing.T) {
	_, err := sdk.InitializeLibrary(sdk.WithDescriptionFormat("xml"))
	configErr := testutil.RequireErrorAs[*domainerrors.ConfigError](t, err)
	assert.Equal(t, "description_format", configErr.Field)

	cfg := entities.DefaultConfig()
	cfg.MaxPayloadSize = 0
	_, err = sdk.InitializeLibrary(sdk.WithConfig(cfg))
	configErr = testutil.RequireErrorAs[*domainerrors.ConfigError](t, err)
	assert.Equal(t, "max_payload_size", configErr.Field)
}

func TestClient_RegisterFunctionDescriptors(t *testing.T) {
	client := newClient(t)

	err := client.RegisterFunction("bad", [][2]string{{"x", "int"}, {"y", "complex"}}, nil, multiply)
	sigErr := testutil.RequireErrorAs[*domainerrors.SignatureError](t, err)
	assert.Equal(t, "parameters[1].type", sigErr.Field)

	err = client.RegisterFunction("dup", [][2]string{{"x", "int"}, {"x", "int"}}, nil, multiply)
	testutil.RequireErrorAs[*domainerrors.SignatureError](t, err)

	err = client.RegisterFunction("nil", nil, nil, nil)
	testutil.RequireErrorAs[*domainerrors.SignatureError](t, err)

	require.NoError(t, client.RegisterFunction("ok", nil, [][2]string{{"r", "long[]"}}, multiply))
	err = client.RegisterFunction("ok", nil, nil, multiply)
	testutil.RequireErrorAs[*domainerrors.DuplicateNameError](t, err)

	assert.Equal(t, []string{"ok"}, client.ListFunctions())
}

func TestParseSignature(t *testing.T) {
	sig, err := sdk.ParseSignature("stats",
		[][2]string{{"values", "double[]"}, {"labels", "string[]"}},
		[][2]string{{"mean", "double"}, {"count", "long"}})
	require.NoError(t, err)
	assert.Equal(t, []entities.ValueType{entities.TypeFloatArray, entities.TypeStringArray}, sig.ParameterTypes())
	assert.Equal(t, []entities.ValueType{entities.TypeFloat64, entities.TypeInt64}, sig.ReturnTypes())

	_, err = sdk.ParseSignature("stats", nil, [][2]string{{"mean", "decimal"}})
	sigErr := testutil.RequireErrorAs[*domainerrors.SignatureError](t, err)
	assert.Equal(t, "returns[0].type", sigErr.Field)
}

func TestClient_LibraryUpdate(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	require.NoError(t, client.SetName("demo"))
	require.NoError(t, client.RegisterBundle(hostfuncs.DemoBundle(nil)))

	_, err := client.LibraryUpdate(ctx)
	testutil.RequireErrorAs[*domainerrors.PhaseError](t, err)

	_, err = client.ConnectToServer()
	require.NoError(t, err)

	calls := []sdk.Call{
		sdk.NewCall("multiply", entities.NewInt32(4), entities.NewInt32(5)),
		sdk.NewCall("teleport"),
		sdk.NewCall("sequence", entities.NewString("five")),
		sdk.NewCall("sequence", entities.NewInt32(5)),
	}
	client.Enqueue(calls...)
	assert.Equal(t, 4, client.Pending())

	results, err := client.LibraryUpdate(ctx)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Zero(t, client.Pending())

	for i, res := range results {
		assert.Equal(t, calls[i].ID, res.ID)
		assert.Equal(t, calls[i].Function, res.Function)
	}

	assert.Nil(t, results[0].Error)
	testutil.AssertValuesEqual(t, []entities.Value{entities.NewInt32(20)}, results[0].Results)

	require.NotNil(t, results[1].Error)
	assert.Equal(t, "unsupported", results[1].Error.Type)
	assert.Equal(t, "unsupported_operation", results[1].Error.Code)

	require.NotNil(t, results[2].Error)
	assert.Equal(t, "type_mismatch", results[2].Error.Code)

	assert.Nil(t, results[3].Error)
	testutil.AssertValuesEqual(t, []entities.Value{entities.NewIntArray([]int32{0, 1, 2, 3, 4})}, results[3].Results)

	results, err = client.LibraryUpdate(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClient_ForeignFunction(t *testing.T) {
	table := native.NewTable()
	fn := hostfuncs.DemoBundle(nil).Functions()[1]
	h, err := table.Bind(fn.Name, hostfuncs.NewCodecHandler(fn.Name, fn.Signature, fn.Fn))
	require.NoError(t, err)

	client := newClient(t, sdk.WithNativeInvoker(table))
	require.NoError(t, client.SetName("remote"))
	require.NoError(t, client.RegisterForeign("times",
		[][2]string{{"x", "int"}, {"y", "int"}},
		[][2]string{{"product", "int"}}, h))
	_, err = client.ConnectToServer()
	require.NoError(t, err)

	call := sdk.NewCall("times", entities.NewInt32(6), entities.NewInt32(7))
	client.Enqueue(call)
	results, err := client.LibraryUpdate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Nil(t, results[0].Error)
	testutil.AssertValuesEqual(t, []entities.Value{entities.NewInt32(42)}, results[0].Results)

	require.NoError(t, client.ShutdownLibrary(context.Background()))
	assert.Zero(t, table.Len())
}

func TestClient_Shutdown(t *testing.T) {
	client := newClient(t)
	require.NoError(t, client.SetName("demo"))
	require.NoError(t, client.RegisterBundle(hostfuncs.DemoBundle(nil)))
	_, err := client.ConnectToServer()
	require.NoError(t, err)

	client.Enqueue(sdk.NewCall("multiply", entities.NewInt32(1), entities.NewInt32(1)))
	require.NoError(t, client.ShutdownLibrary(context.Background()))

	assert.Equal(t, entities.PhaseTerminated, client.Phase())
	assert.Zero(t, client.Pending())
	assert.Empty(t, client.ListFunctions())

	_, err = client.LibraryUpdate(context.Background())
	testutil.RequireErrorAs[*domainerrors.PhaseError](t, err)
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, sdk.ToErrorDetail(nil))

	detail := sdk.ToErrorDetail(&domainerrors.ArityMismatchError{Function: "f", Expected: 2, Actual: 1})
	assert.Equal(t, "arity_mismatch", detail.Code)
	assert.Equal(t, 2, detail.Details["expected"])

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"invocation"`)
}
