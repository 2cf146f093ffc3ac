// Package wireformat implements the binary encoding of values that cross the
// foreign call boundary. Both sides must agree on it byte for byte, so the
// layout below is a stable contract:
//
//	sequence := count:u32 record*
//	record   := tag:u8 payload
//
// Scalars are fixed width little-endian (bool is one byte, 0 or 1; floats
// are their IEEE-754 bits). A string is len:u32 followed by its bytes. An
// array is count:u32 followed by count element payloads without tags.
// Trailing bytes after the last record are malformed.
package wireformat

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// Version is the version of the encoding implemented by this package.
const Version = "1.0.0"

// EncodeValue encodes a single tagged record.
func EncodeValue(v entities.Value) ([]byte, error) {
	return appendValue(nil, v)
}

// EncodeValues encodes values as a count-prefixed sequence of records.
func EncodeValues(values []entities.Value) ([]byte, error) {
	buf := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+8*len(values)), uint32(len(values)))
	for _, v := range values {
		var err error
		if buf, err = appendValue(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeValue decodes a single record that must be of type want and must
// span all of data.
func DecodeValue(data []byte, want entities.ValueType) (entities.Value, error) {
	r := &reader{data: data}
	v, err := r.record(want)
	if err != nil {
		return entities.Value{}, err
	}
	if err := r.finish(want); err != nil {
		return entities.Value{}, err
	}
	return v, nil
}

// DecodeValues decodes a sequence whose records must match types exactly,
// in count and in order.
func DecodeValues(data []byte, types []entities.ValueType) ([]entities.Value, error) {
	r := &reader{data: data}
	n, err := r.count(entities.TypeInvalid)
	if err != nil {
		return nil, err
	}
	if int(n) != len(types) {
		return nil, &errors.MalformedValueError{
			Offset: 0,
			Reason: fmt.Sprintf("sequence holds %d records, expected %d", n, len(types)),
		}
	}

	out := make([]entities.Value, len(types))
	for i, t := range types {
		if out[i], err = r.record(t); err != nil {
			return nil, err
		}
	}
	if err := r.finish(entities.TypeInvalid); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeSequence decodes a sequence using the tags it carries.
func DecodeSequence(data []byte) ([]entities.Value, error) {
	r := &reader{data: data}
	n, err := r.count(entities.TypeInvalid)
	if err != nil {
		return nil, err
	}
	// Every record takes at least two bytes.
	if int(n) > r.remaining()/2 {
		return nil, r.malformed(entities.TypeInvalid, fmt.Sprintf("record count %d exceeds payload", n))
	}

	out := make([]entities.Value, n)
	for i := range out {
		if out[i], err = r.record(entities.TypeInvalid); err != nil {
			return nil, err
		}
	}
	if err := r.finish(entities.TypeInvalid); err != nil {
		return nil, err
	}
	return out, nil
}

func appendValue(buf []byte, v entities.Value) ([]byte, error) {
	if !v.IsValid() {
		return nil, &errors.MalformedValueError{Type: v.Type(), Offset: len(buf), Reason: "cannot encode an invalid value"}
	}
	buf = append(buf, byte(v.Type()))

	switch v.Type() {
	case entities.TypeBoolArray:
		xs, _ := v.AsBoolArray()
		return appendArray(buf, xs, appendBool), nil
	case entities.TypeInt8Array:
		xs, _ := v.AsInt8Array()
		return appendArray(buf, xs, appendInt8), nil
	case entities.TypeInt16Array:
		xs, _ := v.AsInt16Array()
		return appendArray(buf, xs, appendInt16), nil
	case entities.TypeInt32Array:
		xs, _ := v.AsInt32Array()
		return appendArray(buf, xs, appendInt32), nil
	case entities.TypeInt64Array:
		xs, _ := v.AsInt64Array()
		return appendArray(buf, xs, appendInt64), nil
	case entities.TypeFloat32Array:
		xs, _ := v.AsFloat32Array()
		return appendArray(buf, xs, appendFloat32), nil
	case entities.TypeFloat64Array:
		xs, _ := v.AsFloat64Array()
		return appendArray(buf, xs, appendFloat64), nil
	case entities.TypeStringArray:
		xs, _ := v.AsStringArray()
		return appendArray(buf, xs, appendString), nil
	}
	return appendScalar(buf, v), nil
}

func appendScalar(buf []byte, v entities.Value) []byte {
	switch v.Type() {
	case entities.TypeBool:
		x, _ := v.AsBool()
		return appendBool(buf, x)
	case entities.TypeInt8:
		x, _ := v.AsInt8()
		return appendInt8(buf, x)
	case entities.TypeInt16:
		x, _ := v.AsInt16()
		return appendInt16(buf, x)
	case entities.TypeInt32:
		x, _ := v.AsInt32()
		return appendInt32(buf, x)
	case entities.TypeInt64:
		x, _ := v.AsInt64()
		return appendInt64(buf, x)
	case entities.TypeFloat32:
		x, _ := v.AsFloat32()
		return appendFloat32(buf, x)
	case entities.TypeFloat64:
		x, _ := v.AsFloat64()
		return appendFloat64(buf, x)
	case entities.TypeString:
		x, _ := v.AsString()
		return appendString(buf, x)
	}
	return buf
}

func appendArray[T any](buf []byte, xs []T, elem func([]byte, T) []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(xs)))
	for _, x := range xs {
		buf = elem(buf, x)
	}
	return buf
}

func appendBool(buf []byte, x bool) []byte {
	if x {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendInt8(buf []byte, x int8) []byte { return append(buf, byte(x)) }

func appendInt16(buf []byte, x int16) []byte {
	return binary.LittleEndian.AppendUint16(buf, uint16(x))
}

func appendInt32(buf []byte, x int32) []byte {
	return binary.LittleEndian.AppendUint32(buf, uint32(x))
}

func appendInt64(buf []byte, x int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(x))
}

func appendFloat32(buf []byte, x float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
}

func appendFloat64(buf []byte, x float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
}

func appendString(buf []byte, x string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(x)))
	return append(buf, x...)
}
