package wireformat

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// reader walks an encoded buffer. Every length is checked against the
// bytes that remain before anything is allocated.
type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) malformed(t entities.ValueType, reason string) error {
	return &errors.MalformedValueError{Type: t, Offset: r.off, Reason: reason}
}

func (r *reader) take(t entities.ValueType, n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, r.malformed(t, fmt.Sprintf("need %d bytes, %d remain", n, r.remaining()))
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) count(t entities.ValueType) (uint32, error) {
	b, err := r.take(t, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) finish(t entities.ValueType) error {
	if r.remaining() != 0 {
		return r.malformed(t, fmt.Sprintf("%d trailing bytes", r.remaining()))
	}
	return nil
}

// record reads a tag and its payload. When want is TypeInvalid any
// supported tag is accepted.
func (r *reader) record(want entities.ValueType) (entities.Value, error) {
	b, err := r.take(want, 1)
	if err != nil {
		return entities.Value{}, err
	}
	tag := entities.ValueType(b[0])
	if !tag.Valid() {
		r.off--
		return entities.Value{}, r.malformed(want, fmt.Sprintf("unknown tag 0x%02x", b[0]))
	}
	if want != entities.TypeInvalid && tag != want {
		r.off--
		return entities.Value{}, r.malformed(want, fmt.Sprintf("found %s record", tag))
	}
	if tag.IsArray() {
		return r.array(tag)
	}
	return r.scalar(tag)
}

func (r *reader) scalar(t entities.ValueType) (entities.Value, error) {
	switch t {
	case entities.TypeBool:
		x, err := r.boolean(t)
		return entities.NewBool(x), err
	case entities.TypeInt8:
		x, err := r.int8(t)
		return entities.NewInt8(x), err
	case entities.TypeInt16:
		x, err := r.int16(t)
		return entities.NewInt16(x), err
	case entities.TypeInt32:
		x, err := r.int32(t)
		return entities.NewInt32(x), err
	case entities.TypeInt64:
		x, err := r.int64(t)
		return entities.NewInt64(x), err
	case entities.TypeFloat32:
		x, err := r.float32(t)
		return entities.NewFloat32(x), err
	case entities.TypeFloat64:
		x, err := r.float64(t)
		return entities.NewFloat64(x), err
	case entities.TypeString:
		x, err := r.string(t)
		return entities.NewString(x), err
	}
	return entities.Value{}, r.malformed(t, "not a scalar type")
}

// elemSize is the minimum encoded size of one element of t.
func elemSize(t entities.ValueType) int {
	switch t {
	case entities.TypeBool, entities.TypeInt8:
		return 1
	case entities.TypeInt16:
		return 2
	case entities.TypeInt32, entities.TypeFloat32, entities.TypeString:
		return 4
	case entities.TypeInt64, entities.TypeFloat64:
		return 8
	}
	return 1
}

func (r *reader) array(t entities.ValueType) (entities.Value, error) {
	n, err := r.count(t)
	if err != nil {
		return entities.Value{}, err
	}
	if uint64(n)*uint64(elemSize(t.Elem())) > uint64(r.remaining()) {
		return entities.Value{}, r.malformed(t, fmt.Sprintf("array of %d elements exceeds payload", n))
	}

	switch t {
	case entities.TypeBoolArray:
		xs, err := readN(r, t, int(n), r.boolean)
		return entities.NewBoolArray(xs), err
	case entities.TypeInt8Array:
		xs, err := readN(r, t, int(n), r.int8)
		return entities.NewInt8Array(xs), err
	case entities.TypeInt16Array:
		xs, err := readN(r, t, int(n), r.int16)
		return entities.NewInt16Array(xs), err
	case entities.TypeInt32Array:
		xs, err := readN(r, t, int(n), r.int32)
		return entities.NewInt32Array(xs), err
	case entities.TypeInt64Array:
		xs, err := readN(r, t, int(n), r.int64)
		return entities.NewInt64Array(xs), err
	case entities.TypeFloat32Array:
		xs, err := readN(r, t, int(n), r.float32)
		return entities.NewFloat32Array(xs), err
	case entities.TypeFloat64Array:
		xs, err := readN(r, t, int(n), r.float64)
		return entities.NewFloat64Array(xs), err
	case entities.TypeStringArray:
		xs, err := readN(r, t, int(n), r.string)
		return entities.NewStringArray(xs), err
	}
	return entities.Value{}, r.malformed(t, "not an array type")
}

func readN[T any](r *reader, t entities.ValueType, n int, elem func(entities.ValueType) (T, error)) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		x, err := elem(t)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (r *reader) boolean(t entities.ValueType) (bool, error) {
	b, err := r.take(t, 1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	r.off--
	return false, r.malformed(t, fmt.Sprintf("bool byte 0x%02x", b[0]))
}

func (r *reader) int8(t entities.ValueType) (int8, error) {
	b, err := r.take(t, 1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *reader) int16(t entities.ValueType) (int16, error) {
	b, err := r.take(t, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (r *reader) int32(t entities.ValueType) (int32, error) {
	b, err := r.take(t, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) int64(t entities.ValueType) (int64, error) {
	b, err := r.take(t, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) float32(t entities.ValueType) (float32, error) {
	b, err := r.take(t, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) float64(t entities.ValueType) (float64, error) {
	b, err := r.take(t, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) string(t entities.ValueType) (string, error) {
	n, err := r.count(t)
	if err != nil {
		return "", err
	}
	b, err := r.take(t, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
