package ringfs

import (
	"github.com/sirupsen/logrus"
	"github.com/ssargent/howfar/pkg/codec"
)

// Stats summarizes the sector headers seen during discovery
type Stats struct {
	Sectors    int
	InUse      int
	Free       int
	Erased     int
	Erasing    int
	Formatting int
	Unknown    int
}

// Filesystem is a read-only view of a RingFS flash image.
//
// The image is borrowed, not copied: it must not be modified while the
// filesystem or any iterator created from it is in use.
type Filesystem struct {
	image  []byte
	logger *logrus.Entry

	decoder        Decoder
	version        uint32
	sectorCount    int
	recordsPerSlot int
	firstSector    int
	lastFree       int
	stats          Stats
}

// Option configures Open
type Option func(*Filesystem)

// WithLogger sets the logger used for discovery diagnostics
func WithLogger(entry *logrus.Entry) Option {
	return func(fs *Filesystem) {
		if entry != nil {
			fs.logger = entry
		}
	}
}

// Open scans every sector header once, resolves the format version and
// computes the per-slot record capacity. No records are read.
func Open(image []byte, registry *Registry, opts ...Option) (*Filesystem, error) {
	fs := &Filesystem{
		image:    image,
		logger:   logrus.WithField("component", "ringfs"),
		lastFree: -1,
	}
	for _, opt := range opts {
		opt(fs)
	}

	if len(image) < SectorSize || len(image)%SectorSize != 0 {
		return nil, &TruncatedImageError{Length: len(image)}
	}
	fs.sectorCount = len(image) / SectorSize

	if err := fs.discover(); err != nil {
		return nil, err
	}

	decoder, err := registry.Lookup(fs.version)
	if err != nil {
		return nil, err
	}
	fs.decoder = decoder

	size := decoder.Layout.Size()
	if size == 0 {
		return nil, &RecordCapacityError{Version: fs.version}
	}
	fs.recordsPerSlot = (PageSize - SlotHeaderLayout.Size()) / size
	if fs.recordsPerSlot < 1 {
		return nil, &RecordCapacityError{Version: fs.version, RecordSize: size}
	}

	if fs.lastFree >= 0 {
		fs.firstSector = (fs.lastFree + 1) % fs.sectorCount
	}

	fs.logger.WithFields(logrus.Fields{
		"version":          fs.version,
		"sectors":          fs.sectorCount,
		"first_sector":     fs.firstSector,
		"records_per_slot": fs.recordsPerSlot,
	}).Debug("filesystem discovered")

	return fs, nil
}

func (fs *Filesystem) discover() error {
	haveVersion := false
	fs.stats.Sectors = fs.sectorCount

	for sector := 0; sector < fs.sectorCount; sector++ {
		status, version, err := fs.sectorHeader(sector)
		if err != nil {
			return err
		}

		switch status {
		case SectorInUse:
			fs.stats.InUse++
			if haveVersion && version != fs.version {
				return &CorruptedError{Sector: sector, Version: fs.version, Conflict: version}
			}
			fs.version = version
			haveVersion = true
		case SectorFree:
			fs.stats.Free++
			fs.lastFree = sector
		case SectorErased:
			fs.stats.Erased++
		case SectorErasing:
			fs.stats.Erasing++
		case SectorFormatting:
			fs.stats.Formatting++
		default:
			fs.stats.Unknown++
			fs.logger.WithFields(logrus.Fields{
				"sector": sector,
				"status": status.String(),
			}).Debug("ignoring sector with unknown status")
		}
	}

	if !haveVersion {
		return ErrEmptyFilesystem
	}
	if fs.stats.Free > 1 {
		fs.logger.WithFields(logrus.Fields{
			"free_sectors": fs.stats.Free,
			"wrap_sector":  fs.lastFree,
		}).Warn("multiple free sectors, using the last one as wrap point")
	}
	if fs.lastFree < 0 {
		fs.logger.Warn("no free sector, reading ring from sector 0")
	}
	return nil
}

// window returns a bounds-checked, non-owning slice of the image
func (fs *Filesystem) window(offset, size int) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > len(fs.image) {
		return nil, &TruncatedImageError{Offset: offset, Size: size, Length: len(fs.image)}
	}
	return fs.image[offset : offset+size], nil
}

func (fs *Filesystem) sectorHeader(sector int) (SectorStatus, uint32, error) {
	raw, err := fs.window(sector*SectorSize, SectorHeaderLayout.Size())
	if err != nil {
		return 0, 0, err
	}
	rec, err := SectorHeaderLayout.Decode(raw)
	if err != nil {
		return 0, 0, err
	}
	return SectorStatus(mustUint(rec, "status")), uint32(mustUint(rec, "version")), nil
}

func (fs *Filesystem) slotStatus(sector, page int) (SlotStatus, error) {
	raw, err := fs.window(sector*SectorSize+page*PageSize, SlotHeaderLayout.Size())
	if err != nil {
		return 0, err
	}
	rec, err := SlotHeaderLayout.Decode(raw)
	if err != nil {
		return 0, err
	}
	return SlotStatus(mustUint(rec, "status")), nil
}

// mustUint reads a field of the package's own header layouts
func mustUint(rec *codec.Record, name string) uint64 {
	v, err := rec.Uint(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Version returns the format version shared by all in-use sectors
func (fs *Filesystem) Version() uint32 {
	return fs.version
}

// Decoder returns the decoder of the active version
func (fs *Filesystem) Decoder() Decoder {
	return fs.decoder
}

// Columns returns the output column names of the active version
func (fs *Filesystem) Columns() []string {
	return fs.decoder.ColumnNames()
}

// SectorCount returns the number of sectors in the image
func (fs *Filesystem) SectorCount() int {
	return fs.sectorCount
}

// FirstSector returns the oldest sector of the ring (the one after the wrap point)
func (fs *Filesystem) FirstSector() int {
	return fs.firstSector
}

// RecordsPerSlot returns how many records fit after a slot header
func (fs *Filesystem) RecordsPerSlot() int {
	return fs.recordsPerSlot
}

// Stats returns the sector status counts from discovery
func (fs *Filesystem) Stats() Stats {
	return fs.stats
}

// Records returns a new iterator positioned before the oldest record
func (fs *Filesystem) Records() RecordIterator {
	return &ringIterator{fs: fs}
}

// ReadAll collects every record. On error no rows are returned.
func (fs *Filesystem) ReadAll() ([]Row, error) {
	it := fs.Records()
	defer it.Close()

	var rows []Row
	for it.Next() {
		rows = append(rows, it.Record())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
