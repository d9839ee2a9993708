package ringfs

import (
	"fmt"
	"sort"

	"github.com/ssargent/howfar/pkg/codec"
)

// InterpretFunc turns a decoded record into human readable column values
type InterpretFunc func(rec *codec.Record) ([]any, error)

// Decoder describes one on-flash record shape
type Decoder struct {
	Version   uint32
	Layout    *codec.Layout
	Columns   []string      // defaults to the layout field names
	Interpret InterpretFunc // defaults to the raw field values
}

// ColumnNames returns the output columns of the decoder
func (d Decoder) ColumnNames() []string {
	if d.Columns != nil {
		return append([]string(nil), d.Columns...)
	}
	return d.Layout.Names()
}

// Apply decodes raw record bytes and interprets them
func (d Decoder) Apply(raw []byte) (*codec.Record, []any, error) {
	rec, err := d.Layout.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	if d.Interpret == nil {
		return rec, rec.Values(), nil
	}
	values, err := d.Interpret(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("interpret version %d: %w", d.Version, err)
	}
	return rec, values, nil
}

// Registry maps format versions to decoders. It is read-only once built.
type Registry struct {
	decoders map[uint32]Decoder
	versions []uint32
}

// NewRegistry builds a registry; every version may appear only once
func NewRegistry(decoders ...Decoder) (*Registry, error) {
	r := &Registry{decoders: make(map[uint32]Decoder, len(decoders))}
	for _, d := range decoders {
		if d.Layout == nil {
			return nil, fmt.Errorf("version %d: decoder has no layout", d.Version)
		}
		if d.Layout.Size() == 0 {
			return nil, &RecordCapacityError{Version: d.Version}
		}
		if d.Columns != nil && d.Interpret == nil && len(d.Columns) != len(d.Layout.Fields()) {
			return nil, fmt.Errorf("version %d: %d columns for %d raw fields", d.Version, len(d.Columns), len(d.Layout.Fields()))
		}
		if _, dup := r.decoders[d.Version]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateVersion, d.Version)
		}
		r.decoders[d.Version] = d
		r.versions = append(r.versions, d.Version)
	}
	sort.Slice(r.versions, func(i, j int) bool { return r.versions[i] < r.versions[j] })
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error
func MustRegistry(decoders ...Decoder) *Registry {
	r, err := NewRegistry(decoders...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the decoder for a version
func (r *Registry) Lookup(version uint32) (Decoder, error) {
	d, ok := r.decoders[version]
	if !ok {
		return Decoder{}, &UnsupportedVersionError{Version: version, Known: r.Versions()}
	}
	return d, nil
}

// Versions lists the known versions in ascending order
func (r *Registry) Versions() []uint32 {
	return append([]uint32(nil), r.versions...)
}
