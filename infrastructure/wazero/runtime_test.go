package wazero

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/internal/abi"
	"github.com/frontrow-dev/frontrow-sdk/internal/testutil"
	sdklog "github.com/frontrow-dev/frontrow-sdk/log"
)

func TestNewRuntime_Close(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rt.Output())
	assert.NoError(t, rt.Close(ctx))
}

func TestRuntime_InstantiateInvalidModule(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx)
	require.NoError(t, err)
	defer rt.Close(ctx)

	_, err = rt.Instantiate(ctx, "broken", []byte("not wasm"))
	assert.ErrorContains(t, err, `failed to instantiate module "broken"`)
}

func TestRuntime_GuestNeedsCallbacks(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx)
	require.NoError(t, err)
	defer rt.Close(ctx)

	// The test guest imports frontrow_host.multiply, which is only exported
	// when callbacks are configured.
	_, err = rt.Instantiate(ctx, "test-machine", testutil.GuestModule())
	assert.Error(t, err)
}

func TestRuntime_InstantiateDuplicateName(t *testing.T) {
	rt, _ := instantiateGuest(t)

	_, err := rt.Instantiate(context.Background(), "test-machine", testutil.GuestModule())
	assert.Error(t, err)
}

func TestLogMessageHandler(t *testing.T) {
	_, mod := instantiateGuest(t)
	ctx := WithMachineName(context.Background(), "demo")

	var buf bytes.Buffer
	logger := sdklog.NewLogger(&buf, sdklog.WithLevel(slog.LevelDebug), sdklog.WithFormat(sdklog.FormatJSON))

	guest, err := abi.NewGuest(mod)
	require.NoError(t, err)

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "guest warning", 0)
	record.AddAttrs(slog.Int("attempt", 2))
	payload, err := json.Marshal(sdklog.NewLogMessage(record))
	require.NoError(t, err)

	packed, err := guest.Write(ctx, payload)
	require.NoError(t, err)

	logMessageHandler(logger, 1024)(ctx, mod, []uint64{packed})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "guest warning", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "demo", line["machine"])
	assert.EqualValues(t, 2, line["attempt"])
}

func TestLogMessageHandler_RawPayload(t *testing.T) {
	_, mod := instantiateGuest(t)
	ctx := context.Background()

	var buf bytes.Buffer
	logger := sdklog.NewLogger(&buf, sdklog.WithFormat(sdklog.FormatJSON))

	guest, err := abi.NewGuest(mod)
	require.NoError(t, err)
	packed, err := guest.Write(ctx, []byte("plain text"))
	require.NoError(t, err)

	logMessageHandler(logger, 1024)(ctx, mod, []uint64{packed})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "plain text", line["payload"])
	assert.Equal(t, "test-machine", line["machine"])
}

func TestMachineNameContext(t *testing.T) {
	_, ok := MachineNameFromContext(context.Background())
	assert.False(t, ok)

	name, ok := MachineNameFromContext(WithMachineName(context.Background(), "m"))
	assert.True(t, ok)
	assert.Equal(t, "m", name)
}
