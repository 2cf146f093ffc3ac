// Package testutil provides common test utilities and assertions for SDK tests
package testutil

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
)

// RequireErrorAs asserts that err matches the error type T and returns it.
func RequireErrorAs[T error](t *testing.T, err error, msgAndArgs ...interface{}) T {
	t.Helper()

	var target T
	require.Error(t, err, msgAndArgs...)
	require.True(t, errors.As(err, &target), "expected %T, got %T: %v", target, err, err)
	return target
}

// AssertValuesEqual compares value lists with Value.Equal, which treats
// floats bit-exactly.
func AssertValuesEqual(t *testing.T, expected, actual []entities.Value, msgAndArgs ...interface{}) {
	t.Helper()

	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return
	}
	for i := range expected {
		assert.True(t, expected[i].Equal(actual[i]), "value %d: expected %s, got %s", i, expected[i], actual[i])
	}
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
