package entities

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Value is a single typed datum that can cross the call boundary.
// The tag and payload always agree: Values are only built by the New*
// constructors and never mutated afterwards. The zero Value is invalid.
type Value struct {
	payload any
	typ     ValueType
}

// NewBool returns a bool Value.
func NewBool(v bool) Value { return Value{typ: TypeBool, payload: v} }

// NewInt8 returns a byte Value.
func NewInt8(v int8) Value { return Value{typ: TypeInt8, payload: v} }

// NewInt16 returns a short Value.
func NewInt16(v int16) Value { return Value{typ: TypeInt16, payload: v} }

// NewInt32 returns an int Value.
func NewInt32(v int32) Value { return Value{typ: TypeInt32, payload: v} }

// NewInt64 returns a long Value.
func NewInt64(v int64) Value { return Value{typ: TypeInt64, payload: v} }

// NewFloat32 returns a float Value.
func NewFloat32(v float32) Value { return Value{typ: TypeFloat32, payload: v} }

// NewFloat64 returns a double Value.
func NewFloat64(v float64) Value { return Value{typ: TypeFloat64, payload: v} }

// NewString returns a string Value. Strings are carried as raw bytes.
func NewString(v string) Value { return Value{typ: TypeString, payload: v} }

// NewBoolArray returns a bool[] Value holding a copy of v.
func NewBoolArray(v []bool) Value { return Value{typ: TypeBoolArray, payload: cloneSlice(v)} }

// NewInt8Array returns a byte[] Value holding a copy of v.
func NewInt8Array(v []int8) Value { return Value{typ: TypeInt8Array, payload: cloneSlice(v)} }

// NewInt16Array returns a short[] Value holding a copy of v.
func NewInt16Array(v []int16) Value { return Value{typ: TypeInt16Array, payload: cloneSlice(v)} }

// NewInt32Array returns an int[] Value holding a copy of v.
func NewInt32Array(v []int32) Value { return Value{typ: TypeInt32Array, payload: cloneSlice(v)} }

// NewInt64Array returns a long[] Value holding a copy of v.
func NewInt64Array(v []int64) Value { return Value{typ: TypeInt64Array, payload: cloneSlice(v)} }

// NewFloat32Array returns a float[] Value holding a copy of v.
func NewFloat32Array(v []float32) Value {
	return Value{typ: TypeFloat32Array, payload: cloneSlice(v)}
}

// NewFloat64Array returns a double[] Value holding a copy of v.
func NewFloat64Array(v []float64) Value {
	return Value{typ: TypeFloat64Array, payload: cloneSlice(v)}
}

// NewStringArray returns a string[] Value holding a copy of v.
func NewStringArray(v []string) Value {
	return Value{typ: TypeStringArray, payload: cloneSlice(v)}
}

// NewIntArray is an alias of NewInt32Array.
func NewIntArray(v []int32) Value { return NewInt32Array(v) }

// NewFloatArray is an alias of NewFloat64Array.
func NewFloatArray(v []float64) Value { return NewFloat64Array(v) }

func cloneSlice[T any](v []T) []T {
	out := make([]T, len(v))
	copy(out, v)
	return out
}

// Type returns the tag of the Value.
func (v Value) Type() ValueType { return v.typ }

// IsValid reports whether the Value was built by a constructor.
func (v Value) IsValid() bool { return v.typ.Valid() && v.payload != nil }

// Len returns the element count of an array Value, or 0 for scalars.
func (v Value) Len() int {
	switch p := v.payload.(type) {
	case []bool:
		return len(p)
	case []int8:
		return len(p)
	case []int16:
		return len(p)
	case []int32:
		return len(p)
	case []int64:
		return len(p)
	case []float32:
		return len(p)
	case []float64:
		return len(p)
	case []string:
		return len(p)
	}
	return 0
}

// Interface returns the payload as a Go value; slices are copies.
func (v Value) Interface() any {
	switch p := v.payload.(type) {
	case []bool:
		return cloneSlice(p)
	case []int8:
		return cloneSlice(p)
	case []int16:
		return cloneSlice(p)
	case []int32:
		return cloneSlice(p)
	case []int64:
		return cloneSlice(p)
	case []float32:
		return cloneSlice(p)
	case []float64:
		return cloneSlice(p)
	case []string:
		return cloneSlice(p)
	}
	return v.payload
}

// AsBool returns the payload of a bool Value.
func (v Value) AsBool() (bool, bool) { return scalarAs[bool](v, TypeBool) }

// AsInt8 returns the payload of a byte Value.
func (v Value) AsInt8() (int8, bool) { return scalarAs[int8](v, TypeInt8) }

// AsInt16 returns the payload of a short Value.
func (v Value) AsInt16() (int16, bool) { return scalarAs[int16](v, TypeInt16) }

// AsInt32 returns the payload of an int Value.
func (v Value) AsInt32() (int32, bool) { return scalarAs[int32](v, TypeInt32) }

// AsInt64 returns the payload of a long Value.
func (v Value) AsInt64() (int64, bool) { return scalarAs[int64](v, TypeInt64) }

// AsFloat32 returns the payload of a float Value.
func (v Value) AsFloat32() (float32, bool) { return scalarAs[float32](v, TypeFloat32) }

// AsFloat64 returns the payload of a double Value.
func (v Value) AsFloat64() (float64, bool) { return scalarAs[float64](v, TypeFloat64) }

// AsString returns the payload of a string Value.
func (v Value) AsString() (string, bool) { return scalarAs[string](v, TypeString) }

// AsBoolArray returns a copy of the payload of a bool[] Value.
func (v Value) AsBoolArray() ([]bool, bool) { return arrayAs[bool](v, TypeBoolArray) }

// AsInt8Array returns a copy of the payload of a byte[] Value.
func (v Value) AsInt8Array() ([]int8, bool) { return arrayAs[int8](v, TypeInt8Array) }

// AsInt16Array returns a copy of the payload of a short[] Value.
func (v Value) AsInt16Array() ([]int16, bool) { return arrayAs[int16](v, TypeInt16Array) }

// AsInt32Array returns a copy of the payload of an int[] Value.
func (v Value) AsInt32Array() ([]int32, bool) { return arrayAs[int32](v, TypeInt32Array) }

// AsInt64Array returns a copy of the payload of a long[] Value.
func (v Value) AsInt64Array() ([]int64, bool) { return arrayAs[int64](v, TypeInt64Array) }

// AsFloat32Array returns a copy of the payload of a float[] Value.
func (v Value) AsFloat32Array() ([]float32, bool) { return arrayAs[float32](v, TypeFloat32Array) }

// AsFloat64Array returns a copy of the payload of a double[] Value.
func (v Value) AsFloat64Array() ([]float64, bool) { return arrayAs[float64](v, TypeFloat64Array) }

// AsStringArray returns a copy of the payload of a string[] Value.
func (v Value) AsStringArray() ([]string, bool) { return arrayAs[string](v, TypeStringArray) }

func scalarAs[T any](v Value, want ValueType) (T, bool) {
	var zero T
	if v.typ != want {
		return zero, false
	}
	p, ok := v.payload.(T)
	return p, ok
}

func arrayAs[T any](v Value, want ValueType) ([]T, bool) {
	if v.typ != want {
		return nil, false
	}
	p, ok := v.payload.([]T)
	if !ok {
		return nil, false
	}
	return cloneSlice(p), true
}

// Equal reports whether two Values have the same tag and payload.
// Floating point payloads are compared by bit pattern.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ || v.IsValid() != other.IsValid() {
		return false
	}
	switch a := v.payload.(type) {
	case float32:
		b, _ := other.payload.(float32)
		return math.Float32bits(a) == math.Float32bits(b)
	case float64:
		b, _ := other.payload.(float64)
		return math.Float64bits(a) == math.Float64bits(b)
	case []bool:
		b, _ := other.payload.([]bool)
		return slices.Equal(a, b)
	case []int8:
		b, _ := other.payload.([]int8)
		return slices.Equal(a, b)
	case []int16:
		b, _ := other.payload.([]int16)
		return slices.Equal(a, b)
	case []int32:
		b, _ := other.payload.([]int32)
		return slices.Equal(a, b)
	case []int64:
		b, _ := other.payload.([]int64)
		return slices.Equal(a, b)
	case []float32:
		b, _ := other.payload.([]float32)
		return slices.EqualFunc(a, b, func(x, y float32) bool {
			return math.Float32bits(x) == math.Float32bits(y)
		})
	case []float64:
		b, _ := other.payload.([]float64)
		return slices.EqualFunc(a, b, func(x, y float64) bool {
			return math.Float64bits(x) == math.Float64bits(y)
		})
	case []string:
		b, _ := other.payload.([]string)
		return slices.Equal(a, b)
	}
	return v.payload == other.payload
}

// String renders the Value the way ParseValue reads it.
func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	if !v.typ.IsArray() {
		return formatScalar(v.payload)
	}
	var parts []string
	switch p := v.payload.(type) {
	case []bool:
		parts = formatEach(p)
	case []int8:
		parts = formatEach(p)
	case []int16:
		parts = formatEach(p)
	case []int32:
		parts = formatEach(p)
	case []int64:
		parts = formatEach(p)
	case []float32:
		parts = formatEach(p)
	case []float64:
		parts = formatEach(p)
	case []string:
		parts = make([]string, len(p))
		for i, s := range p {
			parts[i] = strconv.Quote(s)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// LogValue implements slog.LogValuer.
func (v Value) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", v.typ.String()),
		slog.String("value", v.String()),
	)
}

func formatEach[T any](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = formatScalar(item)
	}
	return out
}

func formatScalar(p any) string {
	switch x := p.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	}
	return fmt.Sprint(p)
}

// ParseValue parses text into a Value of type t. Array elements are
// comma separated and may be wrapped in brackets; "[]" is the empty array.
// String elements may be double quoted with Go escapes, in which case commas
// inside the quotes belong to the element.
func ParseValue(t ValueType, text string) (Value, error) {
	if !t.Valid() {
		return Value{}, fmt.Errorf("unsupported type %s", t)
	}
	if !t.IsArray() {
		v, err := parseScalar(t, strings.TrimSpace(text))
		if err != nil {
			return Value{}, err
		}
		return v, nil
	}

	body := strings.TrimSpace(text)
	body = strings.TrimSuffix(strings.TrimPrefix(body, "["), "]")
	var fields []string
	if strings.TrimSpace(body) != "" {
		fields = splitFields(body)
	}

	elems := make([]Value, 0, len(fields))
	for i, field := range fields {
		elem, err := parseScalar(t.Elem(), strings.TrimSpace(field))
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		elems = append(elems, elem)
	}
	return collect(t, elems), nil
}

// splitFields splits on commas outside double quotes. A backslash inside
// quotes escapes the next byte.
func splitFields(body string) []string {
	var fields []string
	start := 0
	quoted := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				fields = append(fields, body[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, body[start:])
}

func parseScalar(t ValueType, text string) (Value, error) {
	switch t {
	case TypeBool:
		b, err := strconv.ParseBool(text)
		return NewBool(b), err
	case TypeInt8:
		n, err := strconv.ParseInt(text, 10, 8)
		return NewInt8(int8(n)), err
	case TypeInt16:
		n, err := strconv.ParseInt(text, 10, 16)
		return NewInt16(int16(n)), err
	case TypeInt32:
		n, err := strconv.ParseInt(text, 10, 32)
		return NewInt32(int32(n)), err
	case TypeInt64:
		n, err := strconv.ParseInt(text, 10, 64)
		return NewInt64(n), err
	case TypeFloat32:
		f, err := strconv.ParseFloat(text, 32)
		return NewFloat32(float32(f)), err
	case TypeFloat64:
		f, err := strconv.ParseFloat(text, 64)
		return NewFloat64(f), err
	case TypeString:
		if unquoted, err := strconv.Unquote(text); err == nil {
			return NewString(unquoted), nil
		}
		return NewString(text), nil
	}
	return Value{}, fmt.Errorf("unsupported scalar type %s", t)
}

// collect builds an array Value of type t from scalar Values of its element type.
func collect(t ValueType, elems []Value) Value {
	switch t {
	case TypeBoolArray:
		return NewBoolArray(payloads[bool](elems))
	case TypeInt8Array:
		return NewInt8Array(payloads[int8](elems))
	case TypeInt16Array:
		return NewInt16Array(payloads[int16](elems))
	case TypeInt32Array:
		return NewInt32Array(payloads[int32](elems))
	case TypeInt64Array:
		return NewInt64Array(payloads[int64](elems))
	case TypeFloat32Array:
		return NewFloat32Array(payloads[float32](elems))
	case TypeFloat64Array:
		return NewFloat64Array(payloads[float64](elems))
	case TypeStringArray:
		return NewStringArray(payloads[string](elems))
	}
	return Value{}
}

func payloads[T any](elems []Value) []T {
	out := make([]T, len(elems))
	for i, e := range elems {
		out[i], _ = e.payload.(T)
	}
	return out
}

// Types returns the tags of values, in order.
func Types(values []Value) []ValueType {
	out := make([]ValueType, len(values))
	for i, v := range values {
		out[i] = v.typ
	}
	return out
}
