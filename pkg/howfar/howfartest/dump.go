// Package howfartest builds synthetic device dumps for tests.
package howfartest

import (
	"bytes"
	"encoding/binary"

	"github.com/ssargent/howfar/pkg/ringfs"
	"github.com/ssargent/howfar/pkg/uf2"
)

// Version is the measurement record version written by Flash
const Version uint32 = 2024091501

// Measurement encodes one <timestamp, als_code, tof_distance> record
func Measurement(ts uint32, als, distance uint16) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, ts)
	binary.LittleEndian.PutUint16(out[4:], als)
	binary.LittleEndian.PutUint16(out[6:], distance)
	return out
}

// Flash builds a two sector image: sector 0 in use with the records in
// consecutive valid slots, sector 1 free. Holds at most 465 records.
func Flash(version uint32, records ...[]byte) []byte {
	img := bytes.Repeat([]byte{ringfs.FillByte}, 2*ringfs.SectorSize)
	binary.LittleEndian.PutUint32(img[0:], uint32(ringfs.SectorInUse))
	binary.LittleEndian.PutUint32(img[4:], version)
	binary.LittleEndian.PutUint32(img[ringfs.SectorSize:], uint32(ringfs.SectorFree))

	page := 1
	for len(records) > 0 {
		off := page * ringfs.PageSize
		binary.LittleEndian.PutUint32(img[off:], uint32(ringfs.SlotValid))
		off += 4
		for len(records) > 0 && off+len(records[0]) <= (page+1)*ringfs.PageSize {
			copy(img[off:], records[0])
			off += len(records[0])
			records = records[1:]
		}
		page++
	}
	return img
}

// Dump wraps Flash in a UF2 stream of the default family
func Dump(version uint32, records ...[]byte) []byte {
	return uf2.Encode(Flash(version, records...))
}

// Series returns n measurements one minute apart starting at ts
func Series(ts uint32, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = Measurement(ts+uint32(i)*60, uint16(i), uint16(100+i))
	}
	return out
}
