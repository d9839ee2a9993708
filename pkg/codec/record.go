package codec

import (
	"fmt"
)

// Record holds the decoded field values of one layout instance
type Record struct {
	layout *Layout
	nums   []uint64
	raw    [][]byte
}

// NewRecord creates a zero-valued record for the layout
func NewRecord(l *Layout) *Record {
	r := &Record{
		layout: l,
		nums:   make([]uint64, len(l.fields)),
		raw:    make([][]byte, len(l.fields)),
	}
	for i, f := range l.fields {
		if f.Kind == KindBytes {
			r.raw[i] = make([]byte, f.Size)
		}
	}
	return r
}

// Layout returns the layout the record belongs to
func (r *Record) Layout() *Layout {
	return r.layout
}

func (r *Record) lookup(name string) (int, Field, error) {
	i, ok := r.layout.index[name]
	if !ok {
		return 0, Field{}, fmt.Errorf("%w: %q in layout %q", ErrUnknownField, name, r.layout.name)
	}
	return i, r.layout.fields[i], nil
}

// Uint returns the value of an integer or bit-field
func (r *Record) Uint(name string) (uint64, error) {
	i, f, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	if f.Kind == KindBytes {
		return 0, fmt.Errorf("%w: %q is %s", ErrFieldKind, name, f.Kind)
	}
	return r.nums[i], nil
}

// Bytes returns a copy of a byte array field
func (r *Record) Bytes(name string) ([]byte, error) {
	i, f, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindBytes {
		return nil, fmt.Errorf("%w: %q is %s", ErrFieldKind, name, f.Kind)
	}
	return append([]byte(nil), r.raw[i]...), nil
}

// SetUint assigns an integer or bit-field, rejecting values wider than the field
func (r *Record) SetUint(name string, v uint64) error {
	i, f, err := r.lookup(name)
	if err != nil {
		return err
	}
	if f.Kind == KindBytes {
		return fmt.Errorf("%w: %q is %s", ErrFieldKind, name, f.Kind)
	}
	if v > f.maxValue() {
		return fmt.Errorf("%w: %d does not fit %q (max %d)", ErrValueRange, v, name, f.maxValue())
	}
	r.nums[i] = v
	return nil
}

// SetBytes assigns a byte array field. Shorter values are zero padded.
func (r *Record) SetBytes(name string, b []byte) error {
	i, f, err := r.lookup(name)
	if err != nil {
		return err
	}
	if f.Kind != KindBytes {
		return fmt.Errorf("%w: %q is %s", ErrFieldKind, name, f.Kind)
	}
	if len(b) > f.Size {
		return fmt.Errorf("%w: %d bytes do not fit %q (size %d)", ErrValueRange, len(b), name, f.Size)
	}
	buf := make([]byte, f.Size)
	copy(buf, b)
	r.raw[i] = buf
	return nil
}

// Values returns every field value in declaration order. Integer fields are
// uint64, byte arrays are []byte copies.
func (r *Record) Values() []any {
	out := make([]any, len(r.layout.fields))
	for i, f := range r.layout.fields {
		if f.Kind == KindBytes {
			out[i] = append([]byte(nil), r.raw[i]...)
		} else {
			out[i] = r.nums[i]
		}
	}
	return out
}

// Encode serializes the record into exactly Layout().Size() bytes
func (r *Record) Encode() []byte {
	buf := make([]byte, r.layout.size)
	for i, f := range r.layout.fields {
		window := buf[f.Offset : f.Offset+f.Size]
		if f.Kind == KindBytes {
			copy(window, r.raw[i])
			continue
		}
		v := r.nums[i]
		if f.IsBitField() {
			v = (v & f.maxValue()) << uint(f.Shift)
		}
		orUint(f.Kind, window, v)
	}
	return buf
}
