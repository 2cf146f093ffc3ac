package entities

import (
	"fmt"
	"strings"
)

// ValueType tags the payload of a Value. The numeric value is the tag byte
// used on the wire, so existing constants must never be renumbered.
type ValueType uint8

// Scalar types occupy the low nibble; an array of a scalar sets arrayBit.
const (
	TypeInvalid ValueType = 0x00

	TypeBool    ValueType = 0x01
	TypeInt8    ValueType = 0x02
	TypeInt16   ValueType = 0x03
	TypeInt32   ValueType = 0x04
	TypeInt64   ValueType = 0x05
	TypeFloat32 ValueType = 0x06
	TypeFloat64 ValueType = 0x07
	TypeString  ValueType = 0x08

	TypeBoolArray    ValueType = arrayBit | TypeBool
	TypeInt8Array    ValueType = arrayBit | TypeInt8
	TypeInt16Array   ValueType = arrayBit | TypeInt16
	TypeInt32Array   ValueType = arrayBit | TypeInt32
	TypeInt64Array   ValueType = arrayBit | TypeInt64
	TypeFloat32Array ValueType = arrayBit | TypeFloat32
	TypeFloat64Array ValueType = arrayBit | TypeFloat64
	TypeStringArray  ValueType = arrayBit | TypeString

	// TypeIntArray and TypeFloatArray are the names the call contract uses for
	// the 32-bit integer and double precision arrays.
	TypeIntArray   = TypeInt32Array
	TypeFloatArray = TypeFloat64Array
)

const arrayBit ValueType = 0x10

var typeNames = map[ValueType]string{
	TypeBool:         "bool",
	TypeInt8:         "byte",
	TypeInt16:        "short",
	TypeInt32:        "int",
	TypeInt64:        "long",
	TypeFloat32:      "float",
	TypeFloat64:      "double",
	TypeString:       "string",
	TypeBoolArray:    "bool[]",
	TypeInt8Array:    "byte[]",
	TypeInt16Array:   "short[]",
	TypeInt32Array:   "int[]",
	TypeInt64Array:   "long[]",
	TypeFloat32Array: "float[]",
	TypeFloat64Array: "double[]",
	TypeStringArray:  "string[]",
}

var typesByName = func() map[string]ValueType {
	m := make(map[string]ValueType, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}
	return m
}()

// AllValueTypes returns every supported type in tag order.
func AllValueTypes() []ValueType {
	return []ValueType{
		TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeFloat32, TypeFloat64, TypeString,
		TypeBoolArray, TypeInt8Array, TypeInt16Array, TypeInt32Array, TypeInt64Array,
		TypeFloat32Array, TypeFloat64Array, TypeStringArray,
	}
}

// ParseValueType resolves a textual type descriptor such as "int" or "double[]".
func ParseValueType(name string) (ValueType, error) {
	t, ok := typesByName[strings.TrimSpace(name)]
	if !ok {
		return TypeInvalid, fmt.Errorf("unrecognized type %q", name)
	}
	return t, nil
}

// Valid reports whether t is one of the supported types.
func (t ValueType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// IsArray reports whether t is an array type.
func (t ValueType) IsArray() bool {
	return t.Valid() && t&arrayBit != 0
}

// Elem returns the element type of an array type, or t itself for scalars.
func (t ValueType) Elem() ValueType {
	if t.IsArray() {
		return t &^ arrayBit
	}
	return t
}

// ArrayOf returns the array type whose elements are t.
func (t ValueType) ArrayOf() ValueType {
	if !t.Valid() || t.IsArray() {
		return TypeInvalid
	}
	return t | arrayBit
}

// String returns the textual descriptor accepted by ParseValueType.
func (t ValueType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("invalid(0x%02x)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t ValueType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid value type 0x%02x", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ValueType) UnmarshalText(text []byte) error {
	parsed, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
