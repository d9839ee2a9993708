package ringfs

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ssargent/howfar/pkg/codec"
)

const testVersion = 2024091501

var testLayout = codec.MustLayout("test_record",
	codec.Uint32("timestamp"),
	codec.Uint16("a"),
	codec.Uint16("b"),
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(Decoder{Version: testVersion, Layout: testLayout})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

// flashImage builds RingFS images for tests; unwritten bytes stay erased
type flashImage struct {
	buf []byte
}

func newFlashImage(sectors int) *flashImage {
	return &flashImage{buf: bytes.Repeat([]byte{FillByte}, sectors*SectorSize)}
}

func (f *flashImage) sector(i int, status SectorStatus, version uint32) *flashImage {
	off := i * SectorSize
	binary.LittleEndian.PutUint32(f.buf[off:], uint32(status))
	binary.LittleEndian.PutUint32(f.buf[off+4:], version)
	return f
}

func (f *flashImage) slot(sector, page int, status SlotStatus, records ...[]byte) *flashImage {
	off := sector*SectorSize + page*PageSize
	binary.LittleEndian.PutUint32(f.buf[off:], uint32(status))
	off += SlotHeaderLayout.Size()
	for _, r := range records {
		copy(f.buf[off:], r)
		off += len(r)
	}
	return f
}

func (f *flashImage) bytes() []byte {
	return f.buf
}

func record(ts uint32, a, b uint16) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, ts)
	binary.LittleEndian.PutUint16(out[4:], a)
	binary.LittleEndian.PutUint16(out[6:], b)
	return out
}

func erasedRecord() []byte {
	return bytes.Repeat([]byte{FillByte}, 8)
}

func timestamps(t *testing.T, rows []Row) []uint64 {
	t.Helper()
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[0].(uint64)
	}
	return out
}
