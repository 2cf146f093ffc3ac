// Package errors provides domain-specific error types for the SDK.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// DuplicateNameError is returned when a function name is already registered.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("function %q is already registered", e.Name)
}

// ToErrorDetail implements DetailedError.
func (e *DuplicateNameError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "registration", Code: "duplicate_name"}
}

// SignatureError is returned when a function declaration is not well formed.
// Field names the offending part, e.g. "name", "target" or "returns[1].type".
type SignatureError struct {
	Err      error
	Function string
	Field    string
	Reason   string
}

func (e *SignatureError) Error() string {
	msg := fmt.Sprintf("invalid signature for %q", e.Function)
	if e.Field != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Field)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SignatureError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "registration",
		Code:    "invalid_signature",
		Details: map[string]any{"field": e.Field},
	}
}

// PhaseError is returned when an operation is attempted in a lifecycle
// phase that does not permit it.
type PhaseError struct {
	Operation string
	Current   entities.Phase
	Required  []entities.Phase
}

func (e *PhaseError) Error() string {
	if len(e.Required) == 0 {
		return fmt.Sprintf("%s is not permitted in phase %s", e.Operation, e.Current)
	}
	return fmt.Sprintf("%s is not permitted in phase %s (requires %v)", e.Operation, e.Current, e.Required)
}

// ToErrorDetail implements DetailedError.
func (e *PhaseError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "lifecycle", Code: "invalid_phase"}
}

// NotFoundError is returned by registry lookups and removals of absent names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("function %q not found", e.Name)
}

// ToErrorDetail implements DetailedError.
func (e *NotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "registration", Code: "not_found", IsNotFound: true}
}

// UnknownFunctionError is returned when an invocation names an unregistered function.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// ToErrorDetail implements DetailedError.
func (e *UnknownFunctionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invocation", Code: "unknown_function", IsNotFound: true}
}

// ArityMismatchError is returned when the argument count differs from the signature.
type ArityMismatchError struct {
	Function string
	Expected int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("%s expects %d arguments, got %d", e.Function, e.Expected, e.Actual)
}

// ToErrorDetail implements DetailedError.
func (e *ArityMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "invocation",
		Code:    "arity_mismatch",
		Details: map[string]any{"expected": e.Expected, "actual": e.Actual},
	}
}

// TypeMismatchError is returned for the first argument whose type differs
// from the declared parameter type.
type TypeMismatchError struct {
	Function string
	Index    int
	Expected entities.ValueType
	Actual   entities.ValueType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s argument %d: expected %s, got %s", e.Function, e.Index, e.Expected, e.Actual)
}

// ToErrorDetail implements DetailedError.
func (e *TypeMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "invocation",
		Code:    "type_mismatch",
		Details: map[string]any{"index": e.Index, "expected": e.Expected.String(), "actual": e.Actual.String()},
	}
}

// ResultContractError is returned when a callee produces results that do not
// match its declared return list.
type ResultContractError struct {
	Err      error
	Function string
	Reason   string
}

func (e *ResultContractError) Error() string {
	msg := fmt.Sprintf("%s violated its result contract", e.Function)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResultContractError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ResultContractError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invocation", Code: "result_contract"}
}

// MalformedValueError is returned when bytes cannot be decoded as the declared type.
type MalformedValueError struct {
	Type   entities.ValueType
	Offset int
	Reason string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed %s value at offset %d: %s", e.Type, e.Offset, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *MalformedValueError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "wire", Code: "malformed_value"}
}

// NativeCallCode classifies failures of the native-call primitive.
type NativeCallCode int

// Native call failure codes.
const (
	CodeUnknown       NativeCallCode = 0
	CodeInvalidHandle NativeCallCode = 1
	CodeTransport     NativeCallCode = 2
	CodeGuestTrap     NativeCallCode = 3
	CodeNullResponse  NativeCallCode = 4
	CodeMemoryAccess  NativeCallCode = 5
	CodeCanceled      NativeCallCode = 6
)

func (c NativeCallCode) String() string {
	switch c {
	case CodeInvalidHandle:
		return "invalid_handle"
	case CodeTransport:
		return "transport"
	case CodeGuestTrap:
		return "guest_trap"
	case CodeNullResponse:
		return "null_response"
	case CodeMemoryAccess:
		return "memory_access"
	case CodeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// NativeCallError is returned when the native-call primitive fails.
type NativeCallError struct {
	Err    error
	Handle uint64
	Code   NativeCallCode
}

func (e *NativeCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("native call on handle %d failed (%s): %v", e.Handle, e.Code, e.Err)
	}
	return fmt.Sprintf("native call on handle %d failed (%s)", e.Handle, e.Code)
}

func (e *NativeCallError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call was abandoned because its context ended.
func (e *NativeCallError) Timeout() bool {
	return e.Code == CodeCanceled
}

// ToErrorDetail implements DetailedError.
func (e *NativeCallError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message:   e.Error(),
		Type:      "native",
		Code:      e.Code.String(),
		IsTimeout: e.Timeout(),
	}
}

// CalleeError is returned when a local function fails or panics.
type CalleeError struct {
	Err      error
	Function string
	Stack    []byte
	Panicked bool
}

func (e *CalleeError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("%s panicked: %v", e.Function, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Function, e.Err)
}

func (e *CalleeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CalleeError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "callee", Code: "callee_failed"}
	if e.Panicked {
		detail.Type = "panic"
		detail.Code = "callee_panic"
		detail.Stack = e.Stack
	}
	return detail
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// ManifestError is returned when a machine manifest cannot be loaded.
// Stage is one of "render", "parse", "schema", "validate", "version" or "bind".
type ManifestError struct {
	Err   error
	Stage string
	Path  string
}

func (e *ManifestError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("manifest %s (%s) failed: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("manifest %s failed: %v", e.Stage, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ManifestError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "manifest_" + e.Stage}
}

// SchemaError represents a schema generation or validation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "schema"}
}

// MemoryError represents an allocation refused by a boundary layer limit.
type MemoryError struct {
	Requested int
	Current   int
	Limit     int
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory allocation failed: requested %d bytes, current %d bytes, limit %d bytes",
		e.Requested, e.Current, e.Limit)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "memory_limit"}
}
