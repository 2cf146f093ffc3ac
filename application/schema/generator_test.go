package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/internal/testutil"
)

func TestGenerateSchema_NestedStruct(t *testing.T) {
	type ServerConfig struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	type Config struct {
		Server  ServerConfig `json:"server"`
		Timeout int          `json:"timeout"`
	}

	schema, err := GenerateSchema(Config{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(schema, &decoded))

	assert.Contains(t, string(schema), "server")
	assert.Contains(t, string(schema), "host")
	assert.NotContains(t, string(schema), "$ref")
}

func TestManifestSchema(t *testing.T) {
	raw, err := ManifestSchema()
	require.NoError(t, err)

	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.ElementsMatch(t, []string{"name", "wire_version", "module", "functions"}, doc.Required)
	assert.Contains(t, doc.Properties, "description")
}

func TestManifestSchema_TypeEnumCoversEveryValueType(t *testing.T) {
	s := Reflect(&entities.MachineManifest{})

	functions, ok := s.Properties.Get("functions")
	require.True(t, ok)
	params, ok := functions.Items.Properties.Get("parameters")
	require.True(t, ok)
	typ, ok := params.Items.Properties.Get("type")
	require.True(t, ok)

	var want []any
	for _, vt := range entities.AllValueTypes() {
		want = append(want, vt.String())
	}
	assert.ElementsMatch(t, want, typ.Enum)
}

func TestDescriptionSchema(t *testing.T) {
	raw, err := DescriptionSchema()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "wire_version")
	assert.Contains(t, string(raw), "functions")
}

func TestByName(t *testing.T) {
	manifest, err := ByName("manifest")
	require.NoError(t, err)
	direct, err := ManifestSchema()
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, string(direct), string(manifest))

	_, err = ByName("nope")
	testutil.RequireErrorAs[*domainerrors.SchemaError](t, err)
}
