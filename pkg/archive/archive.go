// Package archive keeps every imported device dump in a pebble database.
//
// Ring dumps overlap: a later dump of the same device repeats every
// measurement that has not been overwritten yet. Measurements are therefore
// stored once, keyed by record version and timestamp, while each capture keeps
// its metadata and its zstd compressed UF2 stream.
package archive

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/howfar/pkg/howfar"
	"github.com/ssargent/howfar/pkg/ringfs"
	"lukechampine.com/blake3"
)

// Config holds archive settings
type Config struct {
	Dir          string
	Logger       *logrus.Entry
	Location     *time.Location // zone for rendered record times
	TargetFamily uint32         // UF2 family holding the flash image, 0 accepts all
	Registry     *ringfs.Registry
}

// Capture describes one imported dump
type Capture struct {
	ID             ksuid.KSUID `json:"id"`
	Name           string      `json:"name"`
	ImportedAt     time.Time   `json:"imported_at"`
	Digest         string      `json:"digest"` // BLAKE3-256 of the UF2 stream
	Version        uint32      `json:"version"`
	Records        int         `json:"records"`
	NewRecords     int         `json:"new_records"`
	Collisions     int         `json:"collisions,omitempty"` // records sharing a timestamp within this capture
	FirstTimestamp uint32      `json:"first_timestamp,omitempty"`
	LastTimestamp  uint32      `json:"last_timestamp,omitempty"`
	ContainerSize  int         `json:"container_size"`
	FlashSize      int         `json:"flash_size"`
	StoredSize     int         `json:"stored_size"`
}

// Query selects archived measurements of one version. To == 0 means no
// upper bound; Version == 0 selects the newest archived version.
type Query struct {
	Version uint32
	From    uint32
	To      uint32
}

// RecordSet is the result of a Query, in timestamp order
type RecordSet struct {
	Version uint32
	Columns []string
	Rows    [][]any
}

// Stats summarizes the archive contents
type Stats struct {
	Captures  int    `json:"captures"`
	Records   int    `json:"records"`
	Versions  int    `json:"versions"`
	DiskUsage uint64 `json:"disk_usage"`
}

// Archive is safe for concurrent use
type Archive struct {
	db       *pebble.DB
	logger   *logrus.Entry
	registry *ringfs.Registry
	dbOpts   []howfar.Option

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	importMu sync.Mutex
}

// Open opens or creates the archive in cfg.Dir
func Open(cfg Config) (*Archive, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("component", "archive")

	registry := cfg.Registry
	if registry == nil {
		registry = howfar.NewVersionRegistry(cfg.Location)
	}

	db, err := pebble.Open(cfg.Dir, &pebble.Options{Logger: pebbleLogger{logger}})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", cfg.Dir, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		_ = db.Close()
		return nil, err
	}

	dbOpts := []howfar.Option{
		howfar.WithLogger(logger),
		howfar.WithRegistry(registry),
		howfar.WithTargetFamily(cfg.TargetFamily),
	}

	return &Archive{
		db:       db,
		logger:   logger,
		registry: registry,
		dbOpts:   dbOpts,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// Close flushes and closes the archive
func (a *Archive) Close() error {
	a.decoder.Close()
	if err := a.encoder.Close(); err != nil {
		_ = a.db.Close()
		return err
	}
	return a.db.Close()
}

// Import decodes a UF2 stream and stores it. Decoding errors are returned
// unchanged and nothing is written. A stream identical to an archived one
// fails with *DuplicateCaptureError.
func (a *Archive) Import(name string, stream []byte) (*Capture, error) {
	database, err := howfar.OpenDatabase(stream, a.dbOpts...)
	if err != nil {
		return nil, err
	}
	rows, err := database.ReadAll()
	if err != nil {
		return nil, err
	}

	sum := blake3.Sum256(stream)

	a.importMu.Lock()
	defer a.importMu.Unlock()

	if existing, err := a.get(digestKey(sum)); err == nil {
		id, err := ksuid.FromBytes(existing)
		if err != nil {
			return nil, err
		}
		prior, err := a.Capture(id.String())
		if err != nil {
			return nil, err
		}
		return nil, &DuplicateCaptureError{Existing: prior}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return nil, err
	}

	capture := &Capture{
		ID:            ksuid.New(),
		Name:          name,
		ImportedAt:    time.Now().UTC(),
		Digest:        hex.EncodeToString(sum[:]),
		Version:       database.Version(),
		Records:       len(rows),
		ContainerSize: len(stream),
		FlashSize:     len(database.Flash()),
	}

	batch := a.db.NewIndexedBatch()
	defer batch.Close()

	seen := make(map[uint32]struct{}, len(rows))
	for i, row := range rows {
		ts, err := row.Record.Uint("timestamp")
		if err != nil {
			return nil, fmt.Errorf("%w: version %d: %v", ErrNoTimestamp, capture.Version, err)
		}
		if i == 0 || uint32(ts) < capture.FirstTimestamp {
			capture.FirstTimestamp = uint32(ts)
		}
		if uint32(ts) > capture.LastTimestamp {
			capture.LastTimestamp = uint32(ts)
		}

		if _, dup := seen[uint32(ts)]; dup {
			capture.Collisions++
			continue
		}
		seen[uint32(ts)] = struct{}{}

		key := recordKey(capture.Version, uint32(ts))
		exists, err := has(batch, key)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		if err := batch.Set(key, row.Record.Encode(), nil); err != nil {
			return nil, err
		}
		capture.NewRecords++
	}

	compressed := a.encoder.EncodeAll(stream, nil)
	capture.StoredSize = len(compressed)

	meta, err := json.Marshal(capture)
	if err != nil {
		return nil, err
	}
	if err := batch.Set(captureKey(capture.ID), meta, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(rawKey(capture.ID), compressed, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(digestKey(sum), capture.ID.Bytes(), nil); err != nil {
		return nil, err
	}
	if err := batch.Set(versionKey(capture.Version), nil, nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("commit capture: %w", err)
	}

	entry := a.logger.WithFields(logrus.Fields{
		"capture":     capture.ID.String(),
		"name":        name,
		"version":     capture.Version,
		"records":     capture.Records,
		"new_records": capture.NewRecords,
	})
	if capture.Collisions > 0 {
		entry.WithField("collisions", capture.Collisions).
			Warn("records share a timestamp; only the first of each was kept")
	}
	entry.Info("capture imported")

	return capture, nil
}

type getter interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func has(g getter, key []byte) (bool, error) {
	_, closer, err := g.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

// Captures lists every capture in import order
func (a *Archive) Captures() ([]*Capture, error) {
	lower, upper := prefixBounds(prefixCapture)
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var captures []*Capture
	for iter.First(); iter.Valid(); iter.Next() {
		var c Capture
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			return nil, fmt.Errorf("capture %x: %w", iter.Key(), err)
		}
		captures = append(captures, &c)
	}
	return captures, iter.Error()
}

func parseID(id string) (ksuid.KSUID, error) {
	k, err := ksuid.Parse(id)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w: %q", ErrInvalidCaptureID, id)
	}
	return k, nil
}

func (a *Archive) get(key []byte) ([]byte, error) {
	value, closer, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

// Capture returns the metadata of one capture
func (a *Archive) Capture(id string) (*Capture, error) {
	k, err := parseID(id)
	if err != nil {
		return nil, err
	}
	meta, err := a.get(captureKey(k))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var c Capture
	if err := json.Unmarshal(meta, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Raw returns the original UF2 stream of a capture
func (a *Archive) Raw(id string) ([]byte, error) {
	k, err := parseID(id)
	if err != nil {
		return nil, err
	}
	compressed, err := a.get(rawKey(k))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a.decoder.DecodeAll(compressed, nil)
}

// DeleteCapture removes a capture and its stream. Measurements stay, since
// other captures may share them.
func (a *Archive) DeleteCapture(id string) error {
	c, err := a.Capture(id)
	if err != nil {
		return err
	}
	k := c.ID

	batch := a.db.NewBatch()
	defer batch.Close()
	if sum, err := hex.DecodeString(c.Digest); err == nil && len(sum) == 32 {
		if err := batch.Delete(digestKey([32]byte(sum)), nil); err != nil {
			return err
		}
	}
	if err := batch.Delete(captureKey(k), nil); err != nil {
		return err
	}
	if err := batch.Delete(rawKey(k), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Versions lists every record version present in the archive
func (a *Archive) Versions() ([]uint32, error) {
	lower, upper := prefixBounds(prefixVersion)
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var versions []uint32
	for iter.First(); iter.Valid(); iter.Next() {
		versions = append(versions, timestampOf(iter.Key()))
	}
	return versions, iter.Error()
}

// Records returns the archived measurements selected by q
func (a *Archive) Records(q Query) (*RecordSet, error) {
	if q.Version == 0 {
		versions, err := a.Versions()
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return &RecordSet{}, nil
		}
		q.Version = versions[len(versions)-1]
	}
	if q.To == 0 {
		q.To = ^uint32(0)
	}

	decoder, err := a.registry.Lookup(q.Version)
	if err != nil {
		return nil, err
	}
	set := &RecordSet{Version: q.Version, Columns: decoder.ColumnNames()}
	if q.From > q.To {
		return set, nil
	}

	lower, upper := recordBounds(q.Version, q.From, q.To)
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		_, values, err := decoder.Apply(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("record %d/%d: %w", q.Version, timestampOf(iter.Key()), err)
		}
		set.Rows = append(set.Rows, values)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return set, nil
}

// Stats counts captures, records and versions
func (a *Archive) Stats() (*Stats, error) {
	count := func(p byte) (int, error) {
		lower, upper := prefixBounds(p)
		iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
		if err != nil {
			return 0, err
		}
		defer iter.Close()
		n := 0
		for iter.First(); iter.Valid(); iter.Next() {
			n++
		}
		return n, iter.Error()
	}

	var (
		stats Stats
		err   error
	)
	if stats.Captures, err = count(prefixCapture); err != nil {
		return nil, err
	}
	if stats.Records, err = count(prefixRecord); err != nil {
		return nil, err
	}
	if stats.Versions, err = count(prefixVersion); err != nil {
		return nil, err
	}
	stats.DiskUsage = a.db.Metrics().DiskSpaceUsage()
	return &stats, nil
}

// pebbleLogger routes pebble's chatter through logrus, info at debug level
type pebbleLogger struct {
	entry *logrus.Entry
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}
