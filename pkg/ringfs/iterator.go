package ringfs

import (
	"fmt"

	"github.com/ssargent/howfar/pkg/codec"
)

// Row is one emitted record with its physical position in the image
type Row struct {
	Values []any
	Record *codec.Record
	Sector int
	Page   int
	Slot   int
	Offset int
}

// RecordIterator provides streaming access to records in ring-write order
type RecordIterator interface {
	Next() bool
	Record() Row
	Err() error
	Close() error
}

// ringIterator walks sectors from the oldest one, pages 1..n within a
// sector and record windows within a valid slot
type ringIterator struct {
	fs *Filesystem

	visit    int // sectors visited so far, 0..sectorCount
	page     int // 0 means the current sector header has not been checked
	slot     int
	slotOpen bool

	row  Row
	err  error
	done bool
}

func (it *ringIterator) Next() bool {
	if it.done {
		return false
	}

	fs := it.fs
	size := fs.decoder.Layout.Size()

	for it.visit < fs.sectorCount {
		sector := (fs.firstSector + it.visit) % fs.sectorCount

		if it.page == 0 {
			status, _, err := fs.sectorHeader(sector)
			if err != nil {
				return it.fail(err)
			}
			if status != SectorInUse {
				it.visit++
				continue
			}
			it.page = 1
		}

		for it.page < PagesPerSector {
			slotOffset := sector*SectorSize + it.page*PageSize

			if !it.slotOpen {
				status, err := fs.slotStatus(sector, it.page)
				if err != nil {
					return it.fail(err)
				}
				if status != SlotValid {
					it.page++
					continue
				}
				it.slotOpen = true
				it.slot = 0
			}

			for it.slot < fs.recordsPerSlot {
				slot := it.slot
				it.slot++

				offset := slotOffset + SlotHeaderLayout.Size() + slot*size
				raw, err := fs.window(offset, size)
				if err != nil {
					return it.fail(err)
				}
				if isErased(raw) {
					continue
				}

				rec, values, err := fs.decoder.Apply(raw)
				if err != nil {
					return it.fail(fmt.Errorf("sector %d page %d slot %d: %w", sector, it.page, slot, err))
				}
				it.row = Row{
					Values: values,
					Record: rec,
					Sector: sector,
					Page:   it.page,
					Slot:   slot,
					Offset: offset,
				}
				return true
			}

			it.slotOpen = false
			it.page++
		}

		it.page = 0
		it.visit++
	}

	it.done = true
	return false
}

func (it *ringIterator) fail(err error) bool {
	it.err = err
	it.done = true
	it.row = Row{}
	return false
}

func (it *ringIterator) Record() Row {
	return it.row
}

func (it *ringIterator) Err() error {
	return it.err
}

func (it *ringIterator) Close() error {
	it.done = true
	return nil
}

// isErased reports whether every byte is the erased fill value
func isErased(b []byte) bool {
	for _, c := range b {
		if c != FillByte {
			return false
		}
	}
	return true
}
