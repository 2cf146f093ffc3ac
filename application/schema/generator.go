// Package schema provides JSON schema generation utilities for the SDK.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// newReflector inlines every nested type so the schema is self-contained
// and readable by draft-7 validators.
func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
}

// Reflect builds the schema of v. Unknown properties are rejected and
// fields without omitempty are required.
func Reflect(v any) *jsonschema.Schema {
	return newReflector().Reflect(v)
}

// GenerateSchema creates an indented JSON schema document from a Go struct.
func GenerateSchema(v any) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(Reflect(v), "", "  ")
	if err != nil {
		return nil, &errors.SchemaError{Type: fmt.Sprintf("%T", v), Err: err}
	}
	return jsonBytes, nil
}

// ManifestSchema returns the schema of a machine manifest document.
func ManifestSchema() ([]byte, error) {
	return GenerateSchema(&entities.MachineManifest{})
}

// DescriptionSchema returns the schema of the machine description sent at
// connect time.
func DescriptionSchema() ([]byte, error) {
	return GenerateSchema(&entities.MachineDescription{})
}

// ByName returns the schema registered under name: "manifest" or "description".
func ByName(name string) ([]byte, error) {
	switch name {
	case "manifest":
		return ManifestSchema()
	case "description":
		return DescriptionSchema()
	}
	return nil, &errors.SchemaError{Type: name, Err: fmt.Errorf("unknown schema %q (want manifest or description)", name)}
}
