package wireformat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
)

// DescriptionFormat selects how a MachineDescription is serialized.
type DescriptionFormat string

// Supported description formats.
const (
	FormatJSON DescriptionFormat = "json"
	FormatCBOR DescriptionFormat = "cbor"
)

// ParseDescriptionFormat accepts "json" or "cbor", case-insensitively.
func ParseDescriptionFormat(s string) (DescriptionFormat, error) {
	switch f := DescriptionFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("unsupported description format %q", s)
}

// cborEncMode sorts map keys canonically so equal descriptions encode to
// identical bytes.
var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wireformat: cbor encoder setup: %v", err))
	}
	return mode
}()

// MarshalDescription serializes desc in the given format.
func MarshalDescription(desc entities.MachineDescription, format DescriptionFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(desc)
	case FormatCBOR:
		return cborEncMode.Marshal(desc)
	}
	return nil, fmt.Errorf("unsupported description format %q", format)
}

// UnmarshalDescription parses data produced by MarshalDescription.
func UnmarshalDescription(data []byte, format DescriptionFormat) (entities.MachineDescription, error) {
	var desc entities.MachineDescription
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &desc)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &desc)
	default:
		err = fmt.Errorf("unsupported description format %q", format)
	}
	if err != nil {
		return entities.MachineDescription{}, fmt.Errorf("failed to decode machine description: %w", err)
	}
	return desc, nil
}
