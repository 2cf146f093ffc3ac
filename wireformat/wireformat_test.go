package wireformat

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

func roundTripValues() []entities.Value {
	return []entities.Value{
		entities.NewBool(true),
		entities.NewBool(false),
		entities.NewInt8(math.MinInt8),
		entities.NewInt16(math.MaxInt16),
		entities.NewInt32(math.MinInt32),
		entities.NewInt32(math.MaxInt32),
		entities.NewInt64(math.MinInt64),
		entities.NewFloat32(float32(math.Inf(-1))),
		entities.NewFloat32(math.SmallestNonzeroFloat32),
		entities.NewFloat64(math.Float64frombits(0x7ff8000000000001)),
		entities.NewFloat64(math.Copysign(0, -1)),
		entities.NewFloat64(math.MaxFloat64),
		entities.NewString(""),
		entities.NewString("héllo\x00world"),
		entities.NewBoolArray(nil),
		entities.NewBoolArray([]bool{true, false, true}),
		entities.NewInt8Array([]int8{-1, 0, 1}),
		entities.NewInt16Array(nil),
		entities.NewIntArray([]int32{math.MinInt32, 0, math.MaxInt32}),
		entities.NewIntArray(nil),
		entities.NewInt64Array([]int64{math.MaxInt64}),
		entities.NewFloat32Array([]float32{1.5, -0.25}),
		entities.NewFloatArray(nil),
		entities.NewFloatArray([]float64{math.Inf(1), math.SmallestNonzeroFloat64}),
		entities.NewStringArray(nil),
		entities.NewStringArray([]string{"", "a", "bc"}),
	}
}

func TestEncodeDecodeValue_RoundTrip(t *testing.T) {
	for _, v := range roundTripValues() {
		t.Run(v.Type().String(), func(t *testing.T) {
			data, err := EncodeValue(v)
			require.NoError(t, err)

			got, err := DecodeValue(data, v.Type())
			require.NoError(t, err)
			assert.True(t, v.Equal(got), "want %s, got %s", v, got)
		})
	}
}

func TestEncodeDecodeValues_RoundTrip(t *testing.T) {
	values := roundTripValues()

	data, err := EncodeValues(values)
	require.NoError(t, err)

	got, err := DecodeValues(data, entities.Types(values))
	require.NoError(t, err)
	require.Len(t, got, len(values))
	for i := range values {
		assert.True(t, values[i].Equal(got[i]), "record %d", i)
	}

	seq, err := DecodeSequence(data)
	require.NoError(t, err)
	assert.Len(t, seq, len(values))
}

func TestEncodeValue_Layout(t *testing.T) {
	tests := []struct {
		name  string
		value entities.Value
		want  []byte
	}{
		{"bool", entities.NewBool(true), []byte{0x01, 0x01}},
		{"int", entities.NewInt32(20), []byte{0x04, 0x14, 0x00, 0x00, 0x00}},
		{"short", entities.NewInt16(-2), []byte{0x03, 0xfe, 0xff}},
		{"string", entities.NewString("ab"), []byte{0x08, 0x02, 0x00, 0x00, 0x00, 'a', 'b'}},
		{"empty int array", entities.NewIntArray(nil), []byte{0x14, 0x00, 0x00, 0x00, 0x00}},
		{"int array", entities.NewIntArray([]int32{1, 2}), []byte{
			0x14, 0x02, 0x00, 0x00, 0x00,
			0x01, 0x00, 0x00, 0x00,
			0x02, 0x00, 0x00, 0x00,
		}},
		{"string array", entities.NewStringArray([]string{"a"}), []byte{
			0x18, 0x01, 0x00, 0x00, 0x00,
			0x01, 0x00, 0x00, 0x00, 'a',
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeValues_CountPrefix(t *testing.T) {
	data, err := EncodeValues(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)

	data, err = EncodeValues([]entities.Value{entities.NewInt8(7)})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 0x02, 0x07}, data)
}

func TestEncodeValue_Invalid(t *testing.T) {
	_, err := EncodeValue(entities.Value{})

	var malformed *domainerrors.MalformedValueError
	assert.True(t, errors.As(err, &malformed))

	_, err = EncodeValues([]entities.Value{entities.NewInt32(1), {}})
	assert.Error(t, err)
}

func TestDecodeValue_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		typ  entities.ValueType
	}{
		{"empty", nil, entities.TypeInt32},
		{"wrong declared type", []byte{0x04, 1, 0, 0, 0}, entities.TypeFloat32},
		{"scalar declared as array", []byte{0x04, 1, 0, 0, 0}, entities.TypeIntArray},
		{"unknown tag", []byte{0x09, 0}, entities.TypeString},
		{"truncated int", []byte{0x04, 1, 0}, entities.TypeInt32},
		{"trailing bytes", []byte{0x01, 0x01, 0xff}, entities.TypeBool},
		{"bad bool", []byte{0x01, 0x02}, entities.TypeBool},
		{"string length past end", []byte{0x08, 9, 0, 0, 0, 'a'}, entities.TypeString},
		{"huge array count", []byte{0x17, 0xff, 0xff, 0xff, 0xff, 0, 0}, entities.TypeFloat64Array},
		{"huge string array count", []byte{0x18, 0xff, 0xff, 0xff, 0x0f}, entities.TypeStringArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.data, tt.typ)
			require.Error(t, err)

			var malformed *domainerrors.MalformedValueError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.typ, malformed.Type)
			assert.False(t, got.IsValid())
		})
	}
}

func TestDecodeValues_CountMismatch(t *testing.T) {
	data, err := EncodeValues([]entities.Value{entities.NewInt32(1), entities.NewInt32(2)})
	require.NoError(t, err)

	_, err = DecodeValues(data, []entities.ValueType{entities.TypeInt32})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence holds 2 records, expected 1")

	_, err = DecodeValues(data, []entities.ValueType{entities.TypeInt32, entities.TypeInt64})
	assert.Error(t, err)
}

func TestDecodeSequence_Malformed(t *testing.T) {
	_, err := DecodeSequence([]byte{0xff, 0xff, 0xff, 0xff})
	assert.Error(t, err)

	_, err = DecodeSequence([]byte{1, 0})
	assert.Error(t, err)

	got, err := DecodeSequence([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDescription_RoundTrip(t *testing.T) {
	desc := entities.MachineDescription{
		Name:        "lathe-01",
		WireVersion: Version,
		Functions: []entities.FunctionDescription{{
			Name:       "multiply",
			Parameters: []entities.ParameterDescription{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
			Returns:    []entities.ParameterDescription{{Name: "product", Type: "int"}},
		}},
	}

	for _, format := range []DescriptionFormat{FormatJSON, FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			data, err := MarshalDescription(desc, format)
			require.NoError(t, err)

			got, err := UnmarshalDescription(data, format)
			require.NoError(t, err)
			assert.Equal(t, desc, got)
		})
	}
}

func TestDescription_CBORIsDeterministic(t *testing.T) {
	desc := entities.MachineDescription{Name: "m", WireVersion: Version}

	a, err := MarshalDescription(desc, FormatCBOR)
	require.NoError(t, err)
	b, err := MarshalDescription(desc, FormatCBOR)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseDescriptionFormat(t *testing.T) {
	f, err := ParseDescriptionFormat(" CBOR ")
	require.NoError(t, err)
	assert.Equal(t, FormatCBOR, f)

	_, err = ParseDescriptionFormat("xml")
	assert.Error(t, err)

	_, err = MarshalDescription(entities.MachineDescription{}, "xml")
	assert.Error(t, err)
}
