package howfar

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ssargent/howfar/pkg/ringfs"
	"github.com/ssargent/howfar/pkg/uf2"
)

// Database gives high level access to a device dump: a UF2 stream holding a
// RingFS flash image
type Database struct {
	flash []byte
	image *uf2.Image
	fs    *ringfs.Filesystem
}

type options struct {
	location     *time.Location
	logger       *logrus.Entry
	targetFamily uint32
	registry     *ringfs.Registry
}

// Option configures OpenDatabase
type Option func(*options)

// WithLocation sets the zone record times are rendered in
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithLogger sets the parent logger for the container and filesystem readers
func WithLogger(entry *logrus.Entry) Option {
	return func(o *options) {
		if entry != nil {
			o.logger = entry
		}
	}
}

// WithTargetFamily selects the UF2 family holding the flash image
func WithTargetFamily(id uint32) Option {
	return func(o *options) { o.targetFamily = id }
}

// WithRegistry replaces the built-in record version table
func WithRegistry(r *ringfs.Registry) Option {
	return func(o *options) { o.registry = r }
}

// OpenDatabase unwraps the container stream and discovers the filesystem.
// Every 256 byte flash chunk travels in one 512 byte block, so a stream that
// is not exactly twice the flash size points at a conversion error.
func OpenDatabase(stream []byte, opts ...Option) (*Database, error) {
	o := &options{
		logger:       logrus.NewEntry(logrus.StandardLogger()),
		targetFamily: uf2.DefaultFamilyID,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = NewVersionRegistry(o.location)
	}

	decoder := uf2.NewDecoder(
		uf2.WithTargetFamily(o.targetFamily),
		uf2.WithLogger(o.logger.WithField("component", "uf2")),
	)
	img, err := decoder.DecodeImage(stream)
	if err != nil {
		return nil, fmt.Errorf("decode container: %w", err)
	}

	if len(stream) != 2*len(img.Data) {
		return nil, fmt.Errorf("%w: container is %d bytes, flash image is %d bytes",
			ErrImageSizeMismatch, len(stream), len(img.Data))
	}

	fs, err := ringfs.Open(img.Data, o.registry, ringfs.WithLogger(o.logger.WithField("component", "ringfs")))
	if err != nil {
		return nil, fmt.Errorf("open filesystem: %w", err)
	}

	return &Database{flash: img.Data, image: img, fs: fs}, nil
}

// Version returns the record format version of the dump
func (db *Database) Version() uint32 {
	return db.fs.Version()
}

// Columns returns the output column names of the dump's record version
func (db *Database) Columns() []string {
	return db.fs.Columns()
}

// Records returns a fresh iterator over the dump in write order
func (db *Database) Records() ringfs.RecordIterator {
	return db.fs.Records()
}

// ReadAll returns every record or an error, never a partial result
func (db *Database) ReadAll() ([]ringfs.Row, error) {
	return db.fs.ReadAll()
}

// Flash returns the decoded flash image. It must not be modified.
func (db *Database) Flash() []byte {
	return db.flash
}

// Container returns the UF2 decoding diagnostics
func (db *Database) Container() *uf2.Image {
	return db.image
}

// Filesystem returns the underlying ring filesystem reader
func (db *Database) Filesystem() *ringfs.Filesystem {
	return db.fs
}
