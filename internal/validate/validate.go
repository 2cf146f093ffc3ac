// Package validate builds the struct validator shared by the registry, the
// manifest loader and config validation.
package validate

import (
	stdErrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// ValueTypeTag is the validation tag accepting a supported value type,
// given either as an entities.ValueType or as its textual name.
const ValueTypeTag = "valuetype"

// New returns a validator that reports field names using their json tags
// and understands the valuetype rule.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation(ValueTypeTag, validValueType)
	return v
}

func validValueType(fl validator.FieldLevel) bool {
	switch t := fl.Field().Interface().(type) {
	case entities.ValueType:
		return t.Valid()
	case string:
		_, err := entities.ParseValueType(t)
		return err == nil
	}
	return false
}

// FieldPath strips the root struct name from a validator namespace,
// turning "Signature.parameters[0].type" into "parameters[0].type".
func FieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// shared is reused by Config; building a validator is expensive.
var shared = New()

// Config validates SDK settings and reports the first offending field as a
// *errors.ConfigError.
func Config(cfg entities.Config) error {
	err := shared.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stdErrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &errors.ConfigError{Field: FieldPath(fe), Err: fe}
	}
	return &errors.ConfigError{Err: err}
}
