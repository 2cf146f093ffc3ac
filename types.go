package sdk

import (
	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

// ErrorDetail is re-exported from entities.
// Error Types: "registration", "lifecycle", "invocation", "wire", "native", "callee", "panic", "config", "validation", "unsupported", "internal"
type ErrorDetail = entities.ErrorDetail

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *ErrorDetail {
	return errors.ToErrorDetail(err)
}

const (
	// Version of the SDK
	Version = "0.1.0"
	// WireVersion is the value encoding spoken by this SDK.
	WireVersion = wireformat.Version
)
