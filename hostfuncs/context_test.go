package hostfuncs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHostContext(t *testing.T) {
	hc := NewHostContext(context.Background(), "multiply")

	require.NotNil(t, hc)
	assert.Equal(t, "multiply", hc.FunctionName())

	_, err := uuid.Parse(hc.InvocationID())
	assert.NoError(t, err)

	other := NewHostContext(context.Background(), "multiply")
	assert.NotEqual(t, hc.InvocationID(), other.InvocationID())
}

func TestHostContext_SetGetValue(t *testing.T) {
	hc := NewHostContext(context.Background(), "test_func")

	_, ok := hc.GetValue("key1")
	assert.False(t, ok)

	hc.SetValue("key1", "value1")
	hc.SetValue("key2", 42)

	val, ok := hc.GetValue("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)

	val2, ok := hc.GetValue("key2")
	assert.True(t, ok)
	assert.Equal(t, 42, val2)
}

func TestHostContext_ImplementsContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	hc := NewHostContext(parent, "average")

	assert.NoError(t, hc.Err())
	cancel()
	<-hc.Done()
	assert.ErrorIs(t, hc.Err(), context.Canceled)
}

func TestHostContextFrom(t *testing.T) {
	t.Run("wraps plain context", func(t *testing.T) {
		hc := HostContextFrom(context.Background(), "sequence")
		assert.Equal(t, "sequence", hc.FunctionName())
	})

	t.Run("returns existing HostContext unchanged", func(t *testing.T) {
		original := NewHostContext(context.Background(), "original")
		original.SetValue("marker", true)

		returned := HostContextFrom(original, "different")

		assert.Equal(t, "original", returned.FunctionName())
		assert.Equal(t, original.InvocationID(), returned.InvocationID())
		val, ok := returned.GetValue("marker")
		assert.True(t, ok)
		assert.Equal(t, true, val)
	})
}
