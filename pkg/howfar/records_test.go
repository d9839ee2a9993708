package howfar

import (
	"testing"
	"time"

	"github.com/ssargent/howfar/pkg/howfar/howfartest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLux(t *testing.T) {
	tests := []struct {
		code uint16
		want float64
	}{
		{0x0000, 0},
		{0x0001, 0.01},
		{0x1001, 0.02},
		{0x0FFF, 40.95},
		{0xB123, 5959.68},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Lux(tt.code), 1e-9, "code 0x%04X", tt.code)
	}
}

func TestVersionRegistry(t *testing.T) {
	r := NewVersionRegistry(time.UTC)
	assert.Equal(t, []uint32{Version2024091501}, r.Versions())

	d, err := r.Lookup(Version2024091501)
	require.NoError(t, err)
	assert.Equal(t, 8, d.Layout.Size())
	assert.Equal(t, []string{"datetime", "timestamp", "alx_lx", "tof_distance_mm"}, d.ColumnNames())

	_, values, err := d.Apply(howfartest.Measurement(1726400000, 0x1001, 523))
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.Equal(t, "2024-09-15T11:33:20", values[0])
	assert.Equal(t, uint64(1726400000), values[1])
	assert.InDelta(t, 0.02, values[2].(float64), 1e-9)
	assert.Equal(t, uint64(523), values[3])
}

func TestVersionRegistry_Location(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	d, err := NewVersionRegistry(loc).Lookup(Version2024091501)
	require.NoError(t, err)

	_, values, err := d.Apply(howfartest.Measurement(1726400000, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "2024-09-15T13:33:20", values[0])
}
