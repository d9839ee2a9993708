package ringfs

import (
	"testing"

	"github.com/ssargent/howfar/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	other := codec.MustLayout("other", codec.Uint32("timestamp"))

	t.Run("lookup known versions", func(t *testing.T) {
		r, err := NewRegistry(
			Decoder{Version: 20, Layout: other},
			Decoder{Version: 10, Layout: testLayout},
		)
		require.NoError(t, err)
		assert.Equal(t, []uint32{10, 20}, r.Versions())

		d, err := r.Lookup(10)
		require.NoError(t, err)
		assert.Same(t, testLayout, d.Layout)
	})

	t.Run("unknown version", func(t *testing.T) {
		r := MustRegistry(Decoder{Version: 10, Layout: testLayout})
		_, err := r.Lookup(11)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
		assert.Contains(t, err.Error(), "11")
	})

	t.Run("duplicate version", func(t *testing.T) {
		_, err := NewRegistry(
			Decoder{Version: 10, Layout: testLayout},
			Decoder{Version: 10, Layout: other},
		)
		assert.ErrorIs(t, err, ErrDuplicateVersion)
		assert.Panics(t, func() {
			MustRegistry(Decoder{Version: 1, Layout: other}, Decoder{Version: 1, Layout: other})
		})
	})

	t.Run("missing layout", func(t *testing.T) {
		_, err := NewRegistry(Decoder{Version: 1})
		assert.Error(t, err)
	})

	t.Run("raw columns must match fields", func(t *testing.T) {
		_, err := NewRegistry(Decoder{Version: 1, Layout: testLayout, Columns: []string{"only"}})
		assert.Error(t, err)
	})

	t.Run("versions are copies", func(t *testing.T) {
		r := MustRegistry(Decoder{Version: 10, Layout: testLayout})
		v := r.Versions()
		v[0] = 99
		assert.Equal(t, []uint32{10}, r.Versions())
	})
}

func TestDecoder_ColumnNames(t *testing.T) {
	raw := Decoder{Version: 1, Layout: testLayout}
	assert.Equal(t, []string{"timestamp", "a", "b"}, raw.ColumnNames())

	named := Decoder{Version: 1, Layout: testLayout, Columns: []string{"x", "y", "z"}}
	cols := named.ColumnNames()
	cols[0] = "changed"
	assert.Equal(t, []string{"x", "y", "z"}, named.ColumnNames())
}

func TestDecoder_Apply(t *testing.T) {
	d := Decoder{Version: 1, Layout: testLayout}

	rec, values, err := d.Apply(record(5, 6, 7))
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Equal(t, []any{uint64(5), uint64(6), uint64(7)}, values)

	_, _, err = d.Apply([]byte{1})
	assert.ErrorIs(t, err, codec.ErrSizeMismatch)
}
