package archive

import (
	"os"
	"testing"
	"time"

	"github.com/ssargent/howfar/pkg/howfar"
	"github.com/ssargent/howfar/pkg/howfar/howfartest"
	"github.com/ssargent/howfar/pkg/uf2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 = 1726400000

// setupTestArchive opens an archive in a temporary directory
func setupTestArchive(t *testing.T) (*Archive, func()) {
	tmpDir, err := os.MkdirTemp("", "howfar_archive_test")
	require.NoError(t, err)

	a, err := Open(Config{Dir: tmpDir, Location: time.UTC})
	require.NoError(t, err)

	cleanup := func() {
		a.Close()
		os.RemoveAll(tmpDir)
	}
	return a, cleanup
}

func TestArchive_ImportAndList(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	stream := howfartest.Dump(howfartest.Version, howfartest.Series(t0, 40)...)
	c, err := a.Import("monday.uf2", stream)
	require.NoError(t, err)

	assert.Equal(t, "monday.uf2", c.Name)
	assert.Equal(t, howfartest.Version, c.Version)
	assert.Equal(t, 40, c.Records)
	assert.Equal(t, 40, c.NewRecords)
	assert.Equal(t, uint32(t0), c.FirstTimestamp)
	assert.Equal(t, uint32(t0+39*60), c.LastTimestamp)
	assert.Equal(t, len(stream), c.ContainerSize)
	assert.Equal(t, len(stream)/2, c.FlashSize)
	assert.Less(t, c.StoredSize, c.ContainerSize)

	captures, err := a.Captures()
	require.NoError(t, err)
	require.Len(t, captures, 1)
	assert.Equal(t, c.ID, captures[0].ID)

	got, err := a.Capture(c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, c.Records, got.Records)
	assert.True(t, c.ImportedAt.Equal(got.ImportedAt))

	raw, err := a.Raw(c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, stream, raw)
}

func TestArchive_OverlappingDumpsAreDeduplicated(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	series := howfartest.Series(t0, 10)

	first, err := a.Import("first", howfartest.Dump(howfartest.Version, series[:6]...))
	require.NoError(t, err)
	assert.Equal(t, 6, first.NewRecords)

	second, err := a.Import("second", howfartest.Dump(howfartest.Version, series[3:]...))
	require.NoError(t, err)
	assert.Equal(t, 7, second.Records)
	assert.Equal(t, 4, second.NewRecords)

	set, err := a.Records(Query{})
	require.NoError(t, err)
	assert.Equal(t, howfartest.Version, set.Version)
	assert.Equal(t, []string{"datetime", "timestamp", "alx_lx", "tof_distance_mm"}, set.Columns)
	require.Len(t, set.Rows, 10)
	for i, row := range set.Rows {
		assert.Equal(t, uint64(t0+i*60), row[1])
	}
	assert.Equal(t, "2024-09-15T11:33:20", set.Rows[0][0])

	captures, err := a.Captures()
	require.NoError(t, err)
	require.Len(t, captures, 2)
	assert.Equal(t, "first", captures[0].Name)
	assert.Equal(t, "second", captures[1].Name)
}

func TestArchive_RecordsRange(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	_, err := a.Import("dump", howfartest.Dump(howfartest.Version, howfartest.Series(t0, 10)...))
	require.NoError(t, err)

	tests := []struct {
		name string
		q    Query
		want int
	}{
		{name: "all", q: Query{Version: howfartest.Version}, want: 10},
		{name: "from", q: Query{From: t0 + 5*60}, want: 5},
		{name: "to inclusive", q: Query{To: t0 + 2*60}, want: 3},
		{name: "window", q: Query{From: t0 + 60, To: t0 + 3*60}, want: 3},
		{name: "inverted", q: Query{From: t0 + 3*60, To: t0}, want: 0},
		{name: "after last", q: Query{From: t0 + 3600}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := a.Records(tt.q)
			require.NoError(t, err)
			assert.Len(t, set.Rows, tt.want)
		})
	}
}

func TestArchive_RecordsEmpty(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	set, err := a.Records(Query{})
	require.NoError(t, err)
	assert.Empty(t, set.Rows)
	assert.Zero(t, set.Version)

	versions, err := a.Versions()
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestArchive_ImportRejectsBadStream(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	first := uf2.Encode(make([]byte, 256))
	second := uf2.NewEncoder(uf2.WithAppStartAddr(0)).Encode(make([]byte, 256))
	_, err := a.Import("broken", append(first, second...))
	assert.ErrorIs(t, err, uf2.ErrOutOfOrder)

	captures, err := a.Captures()
	require.NoError(t, err)
	assert.Empty(t, captures)
}

func TestArchive_TargetFamily(t *testing.T) {
	untagged := uf2.NewEncoder(uf2.WithFamilyID(0)).Encode(
		howfartest.Flash(howfartest.Version, howfartest.Series(t0, 3)...))

	tests := []struct {
		name    string
		family  uint32
		wantErr error
	}{
		{"zero accepts untagged blocks", 0, nil},
		{"default family skips untagged blocks", uf2.DefaultFamilyID, howfar.ErrImageSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir, err := os.MkdirTemp("", "howfar_archive_test")
			require.NoError(t, err)
			defer os.RemoveAll(tmpDir)

			a, err := Open(Config{Dir: tmpDir, Location: time.UTC, TargetFamily: tt.family})
			require.NoError(t, err)
			defer a.Close()

			c, err := a.Import("untagged.uf2", untagged)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, c.Records)
		})
	}
}

func TestArchive_TimestampCollisions(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []uint32
		wantNew    int
		wantCollis int
	}{
		{"distinct", []uint32{t0, t0 + 60, t0 + 120}, 3, 0},
		{"same second", []uint32{t0, t0, t0 + 60}, 2, 1},
		{"clock unset", []uint32{0, 0, 0, t0}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, cleanup := setupTestArchive(t)
			defer cleanup()

			records := make([][]byte, len(tt.timestamps))
			for i, ts := range tt.timestamps {
				records[i] = howfartest.Measurement(ts, uint16(i), 100)
			}

			c, err := a.Import("collide.uf2", howfartest.Dump(howfartest.Version, records...))
			require.NoError(t, err)
			assert.Equal(t, len(tt.timestamps), c.Records)
			assert.Equal(t, tt.wantNew, c.NewRecords)
			assert.Equal(t, tt.wantCollis, c.Collisions)

			stored, err := a.Capture(c.ID.String())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCollis, stored.Collisions)
		})
	}
}

func TestArchive_CaptureLookupErrors(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	_, err := a.Capture("not-a-ksuid")
	assert.ErrorIs(t, err, ErrInvalidCaptureID)

	_, err = a.Capture("2NjYsW0A3RoWPFsbwmvpXfYj3pi")
	assert.ErrorIs(t, err, ErrCaptureNotFound)

	_, err = a.Raw("2NjYsW0A3RoWPFsbwmvpXfYj3pi")
	assert.ErrorIs(t, err, ErrCaptureNotFound)
}

func TestArchive_DeleteCapture(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	c, err := a.Import("dump", howfartest.Dump(howfartest.Version, howfartest.Series(t0, 3)...))
	require.NoError(t, err)

	require.NoError(t, a.DeleteCapture(c.ID.String()))
	_, err = a.Capture(c.ID.String())
	assert.ErrorIs(t, err, ErrCaptureNotFound)
	assert.ErrorIs(t, a.DeleteCapture(c.ID.String()), ErrCaptureNotFound)

	set, err := a.Records(Query{})
	require.NoError(t, err)
	assert.Len(t, set.Rows, 3)

	// the stream may be archived again once its capture is gone
	again, err := a.Import("dump", howfartest.Dump(howfartest.Version, howfartest.Series(t0, 3)...))
	require.NoError(t, err)
	assert.Equal(t, 0, again.NewRecords)
}

func TestArchive_DuplicateStream(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	stream := howfartest.Dump(howfartest.Version, howfartest.Series(t0, 4)...)
	first, err := a.Import("monday.uf2", stream)
	require.NoError(t, err)
	assert.Len(t, first.Digest, 64)

	_, err = a.Import("monday-copy.uf2", stream)
	require.ErrorIs(t, err, ErrDuplicateCapture)

	var dup *DuplicateCaptureError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.Existing.ID)
	assert.Equal(t, "monday.uf2", dup.Existing.Name)

	captures, err := a.Captures()
	require.NoError(t, err)
	assert.Len(t, captures, 1)
}

func TestArchive_Stats(t *testing.T) {
	a, cleanup := setupTestArchive(t)
	defer cleanup()

	_, err := a.Import("a", howfartest.Dump(howfartest.Version, howfartest.Series(t0, 5)...))
	require.NoError(t, err)
	_, err = a.Import("b", howfartest.Dump(howfartest.Version, howfartest.Series(t0, 8)...))
	require.NoError(t, err)

	stats, err := a.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Captures)
	assert.Equal(t, 8, stats.Records)
	assert.Equal(t, 1, stats.Versions)

	versions, err := a.Versions()
	require.NoError(t, err)
	assert.Equal(t, []uint32{howfartest.Version}, versions)
}

func TestArchive_PersistsAcrossReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "howfar_archive_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	a, err := Open(Config{Dir: tmpDir})
	require.NoError(t, err)
	c, err := a.Import("dump", howfartest.Dump(howfartest.Version, howfartest.Series(t0, 2)...))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = Open(Config{Dir: tmpDir})
	require.NoError(t, err)
	defer a.Close()

	got, err := a.Capture(c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "dump", got.Name)
}

func TestRecordBounds(t *testing.T) {
	lower, upper := recordBounds(7, 10, 20)
	assert.Equal(t, recordKey(7, 10), lower)
	assert.Equal(t, recordKey(7, 21), upper)

	_, upper = recordBounds(7, 0, ^uint32(0))
	assert.Equal(t, recordKey(8, 0), upper)

	_, upper = recordBounds(^uint32(0), 0, ^uint32(0))
	assert.Equal(t, []byte{'r', '/' + 1}, upper)
}
