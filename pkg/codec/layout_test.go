package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsLikeLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout("settings",
		Uint32("settingsVersion"),
		BitGroup(KindUint16,
			Bit("featureALS", 1),
			Bit("featureTOF", 1),
			Bit("featureDCDCSleep", 1),
			Bit("featureStorage", 1),
			Bit("_featurePadding", 12),
		),
		BitGroup(KindUint16,
			Bit("flagEraseDatabase", 1),
			Bit("_flagPadding", 15),
		),
		Uint32("timestamp"),
		Uint32("tofDistanceMode"),
		Uint32("tofTimingBudget"),
		Uint32("measurementInterval"),
		Bytes("examinationIdentifier", 8),
	)
	require.NoError(t, err)
	return l
}

func TestNewLayout_Offsets(t *testing.T) {
	l, err := NewLayout("record", Uint32("timestamp"), Uint16("als_code"), Uint16("tof_distance"))
	require.NoError(t, err)

	assert.Equal(t, "record", l.Name())
	assert.Equal(t, 8, l.Size())
	assert.Equal(t, []string{"timestamp", "als_code", "tof_distance"}, l.Names())

	f, ok := l.Field("tof_distance")
	require.True(t, ok)
	assert.Equal(t, 6, f.Offset)
	assert.Equal(t, 2, f.Size)
	assert.Equal(t, KindUint16, f.Kind)
	assert.False(t, f.IsBitField())

	_, ok = l.Field("missing")
	assert.False(t, ok)
}

func TestNewLayout_BitGroups(t *testing.T) {
	l := settingsLikeLayout(t)
	assert.Equal(t, 32, l.Size())

	storage, ok := l.Field("featureStorage")
	require.True(t, ok)
	assert.Equal(t, 4, storage.Offset)
	assert.Equal(t, 3, storage.Shift)
	assert.Equal(t, 1, storage.Width)
	assert.True(t, storage.IsBitField())

	erase, ok := l.Field("flagEraseDatabase")
	require.True(t, ok)
	assert.Equal(t, 6, erase.Offset)
	assert.Equal(t, 0, erase.Shift)

	ident, ok := l.Field("examinationIdentifier")
	require.True(t, ok)
	assert.Equal(t, 24, ident.Offset)
}

func TestNewLayout_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		specs []FieldSpec
		msg   string
	}{
		{
			name:  "duplicate field",
			specs: []FieldSpec{Uint8("a"), Uint16("a")},
			msg:   "duplicate field",
		},
		{
			name:  "overflowing bit group",
			specs: []FieldSpec{BitGroup(KindUint16, Bit("a", 10), Bit("b", 7))},
			msg:   "overflows",
		},
		{
			name:  "zero-width bit",
			specs: []FieldSpec{BitGroup(KindUint32, Bit("a", 0))},
			msg:   "non-positive bit width",
		},
		{
			name:  "empty byte array",
			specs: []FieldSpec{Bytes("name", 0)},
			msg:   "non-positive size",
		},
		{
			name:  "bytes host for bit group",
			specs: []FieldSpec{BitGroup(KindBytes, Bit("a", 1))},
			msg:   "host must be an integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout("bad", tt.specs...)
			require.Error(t, err)
			assert.Nil(t, l)
			assert.ErrorIs(t, err, ErrInvalidLayout)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMustLayout_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustLayout("bad", Uint8("x"), Uint8("x"))
	})
}

func TestLayout_DecodeShortInput(t *testing.T) {
	l := MustLayout("record", Uint32("timestamp"), Uint16("als_code"), Uint16("tof_distance"))

	_, err := l.Decode([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeMismatch))

	var sizeErr *SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 8, sizeErr.Want)
	assert.Equal(t, 3, sizeErr.Got)
	assert.Contains(t, err.Error(), "record")
}

func TestLayout_DecodeLittleEndian(t *testing.T) {
	l := MustLayout("record", Uint32("timestamp"), Uint16("als_code"), Uint16("tof_distance"), Uint8("flags"))

	data := []byte{0x78, 0x56, 0x34, 0x12, 0xCD, 0xAB, 0x10, 0x00, 0x7F, 0xEE}
	rec, err := l.Decode(data)
	require.NoError(t, err)

	ts, err := rec.Uint("timestamp")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x12345678), ts)

	als, err := rec.Uint("als_code")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xABCD), als)

	dist, err := rec.Uint("tof_distance")
	require.NoError(t, err)
	assert.Equal(t, uint64(16), dist)

	flags, err := rec.Uint("flags")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7F), flags)
}

func TestLayout_DecodeBitFields(t *testing.T) {
	l := settingsLikeLayout(t)

	data := make([]byte, l.Size())
	data[4] = 0b0000_1011 // ALS, TOF, storage
	data[6] = 0x01        // erase flag
	copy(data[24:], "OPTODATA")

	rec, err := l.Decode(data)
	require.NoError(t, err)

	for name, want := range map[string]uint64{
		"featureALS":        1,
		"featureTOF":        1,
		"featureDCDCSleep":  0,
		"featureStorage":    1,
		"_featurePadding":   0,
		"flagEraseDatabase": 1,
	} {
		got, err := rec.Uint(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	ident, err := rec.Bytes("examinationIdentifier")
	require.NoError(t, err)
	assert.Equal(t, []byte("OPTODATA"), ident)
}

func TestLayout_EncodeMismatch(t *testing.T) {
	a := MustLayout("a", Uint8("x"))
	b := MustLayout("b", Uint8("x"))

	_, err := b.Encode(NewRecord(a))
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	out, err := a.Encode(NewRecord(a))
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, out)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "uint16", KindUint16.String())
	assert.Equal(t, "bytes", KindBytes.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
