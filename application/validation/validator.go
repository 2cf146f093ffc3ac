// Package validation checks raw manifest documents against JSON schemas.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/frontrow-dev/frontrow-sdk/application/schema"
	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
)

// SchemaValidator implements ports.ManifestValidator with a compiled schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

var _ ports.ManifestValidator = (*SchemaValidator)(nil)

// NewManifestValidator compiles the machine manifest schema.
func NewManifestValidator() (*SchemaValidator, error) {
	raw, err := schema.ManifestSchema()
	if err != nil {
		return nil, err
	}
	return NewSchemaValidator(raw)
}

// NewSchemaValidator compiles an arbitrary JSON schema document.
func NewSchemaValidator(schemaJSON []byte) (*SchemaValidator, error) {
	var doc map[string]any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil, &errors.SchemaError{Err: fmt.Errorf("decoding schema: %w", err)}
	}
	// The draft 2020-12 identifiers emitted by the reflector are not
	// understood by the draft-7 compiler; the keywords used are common to both.
	delete(doc, "$schema")
	delete(doc, "$id")

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &errors.SchemaError{Err: fmt.Errorf("compiling schema: %w", err)}
	}
	return &SchemaValidator{schema: compiled}, nil
}

// Validate reports every schema violation in document.
func (v *SchemaValidator) Validate(document any) (*entities.ValidationResult, error) {
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, &errors.SchemaError{Err: fmt.Errorf("validating document: %w", err)}
	}

	result := &entities.ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return result, nil
}
