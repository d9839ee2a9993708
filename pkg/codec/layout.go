package codec

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies the primitive storage type of a field
type Kind uint8

const (
	KindUint8 Kind = iota + 1
	KindUint16
	KindUint32
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// width returns the storage size in bytes of an integer kind
func (k Kind) width() int {
	switch k {
	case KindUint8:
		return 1
	case KindUint16:
		return 2
	case KindUint32:
		return 4
	default:
		return 0
	}
}

// FieldSpec declares one field (or one bit-field group) of a layout.
// Use Uint8, Uint16, Uint32, Bytes and BitGroup to build them.
type FieldSpec struct {
	name string
	kind Kind
	size int
	bits []BitSpec
}

// BitSpec declares a bit-field inside a BitGroup
type BitSpec struct {
	Name  string
	Width int
}

// Uint8 declares an unsigned 8-bit field
func Uint8(name string) FieldSpec { return FieldSpec{name: name, kind: KindUint8, size: 1} }

// Uint16 declares an unsigned little-endian 16-bit field
func Uint16(name string) FieldSpec { return FieldSpec{name: name, kind: KindUint16, size: 2} }

// Uint32 declares an unsigned little-endian 32-bit field
func Uint32(name string) FieldSpec { return FieldSpec{name: name, kind: KindUint32, size: 4} }

// Bytes declares a fixed-length byte or character array
func Bytes(name string, n int) FieldSpec { return FieldSpec{name: name, kind: KindBytes, size: n} }

// Bit declares a bit-field of the given width
func Bit(name string, width int) BitSpec { return BitSpec{Name: name, Width: width} }

// BitGroup declares bit-fields packed into a single host integer, least
// significant bit first. The group occupies exactly one host integer.
func BitGroup(host Kind, bits ...BitSpec) FieldSpec {
	return FieldSpec{kind: host, size: host.width(), bits: bits}
}

// Field is a resolved field with its static position in the layout
type Field struct {
	Name   string
	Kind   Kind
	Offset int // byte offset of the field (or of its host integer)
	Size   int // byte size of the field (or of its host integer)
	Shift  int // bit position inside the host integer, bit-fields only
	Width  int // bit width, 0 for plain fields
}

// IsBitField reports whether the field lives inside a host integer
func (f Field) IsBitField() bool {
	return f.Width > 0
}

func (f Field) maxValue() uint64 {
	if f.IsBitField() {
		return 1<<uint(f.Width) - 1
	}
	return 1<<uint(8*f.Size) - 1
}

// Layout is an immutable little-endian byte layout. All offsets and the total
// size are computed once when the layout is built.
type Layout struct {
	name   string
	fields []Field
	index  map[string]int
	size   int
}

// NewLayout packs the declared fields contiguously, in order, with no
// implicit alignment padding.
func NewLayout(name string, specs ...FieldSpec) (*Layout, error) {
	l := &Layout{
		name:  name,
		index: make(map[string]int),
	}

	offset := 0
	add := func(f Field) error {
		if f.Name == "" {
			return &LayoutError{Layout: name, Reason: "field without a name", Err: ErrInvalidLayout}
		}
		if _, dup := l.index[f.Name]; dup {
			return &LayoutError{Layout: name, Field: f.Name, Reason: "duplicate field", Err: ErrInvalidLayout}
		}
		l.index[f.Name] = len(l.fields)
		l.fields = append(l.fields, f)
		return nil
	}

	for _, spec := range specs {
		if spec.bits == nil {
			if spec.size <= 0 {
				return nil, &LayoutError{Layout: name, Field: spec.name, Reason: "non-positive size", Err: ErrInvalidLayout}
			}
			if err := add(Field{Name: spec.name, Kind: spec.kind, Offset: offset, Size: spec.size}); err != nil {
				return nil, err
			}
			offset += spec.size
			continue
		}

		if spec.size == 0 {
			return nil, &LayoutError{Layout: name, Reason: "bit group host must be an integer kind", Err: ErrInvalidLayout}
		}
		shift := 0
		for _, b := range spec.bits {
			if b.Width <= 0 {
				return nil, &LayoutError{Layout: name, Field: b.Name, Reason: "non-positive bit width", Err: ErrInvalidLayout}
			}
			if shift+b.Width > 8*spec.size {
				return nil, &LayoutError{Layout: name, Field: b.Name,
					Reason: fmt.Sprintf("bit group overflows %s host", spec.kind), Err: ErrInvalidLayout}
			}
			f := Field{Name: b.Name, Kind: spec.kind, Offset: offset, Size: spec.size, Shift: shift, Width: b.Width}
			if err := add(f); err != nil {
				return nil, err
			}
			shift += b.Width
		}
		offset += spec.size
	}

	l.size = offset
	return l, nil
}

// MustLayout is like NewLayout but panics on a malformed declaration.
// Intended for package-level layout tables.
func MustLayout(name string, specs ...FieldSpec) *Layout {
	l, err := NewLayout(name, specs...)
	if err != nil {
		panic(err)
	}
	return l
}

// Name returns the layout name used in error messages
func (l *Layout) Name() string {
	return l.name
}

// Size returns the fixed encoded size in bytes
func (l *Layout) Size() int {
	return l.size
}

// Fields returns the resolved fields in declaration order
func (l *Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Field looks up a field by name
func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

// Names returns the field names in declaration order
func (l *Layout) Names() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.Name
	}
	return names
}

// Decode reads a record from the first Size() bytes of data
func (l *Layout) Decode(data []byte) (*Record, error) {
	if len(data) < l.size {
		return nil, &SizeError{Layout: l.name, Want: l.size, Got: len(data)}
	}

	r := NewRecord(l)
	for i, f := range l.fields {
		window := data[f.Offset : f.Offset+f.Size]
		if f.Kind == KindBytes {
			r.raw[i] = append([]byte(nil), window...)
			continue
		}
		v := readUint(f.Kind, window)
		if f.IsBitField() {
			v = (v >> uint(f.Shift)) & f.maxValue()
		}
		r.nums[i] = v
	}
	return r, nil
}

// Encode serializes a record built from this layout into exactly Size() bytes
func (l *Layout) Encode(r *Record) ([]byte, error) {
	if r.layout != l {
		return nil, fmt.Errorf("%w: record of %q encoded with %q", ErrLayoutMismatch, r.layout.name, l.name)
	}
	return r.Encode(), nil
}

func readUint(k Kind, b []byte) uint64 {
	switch k {
	case KindUint8:
		return uint64(b[0])
	case KindUint16:
		return uint64(binary.LittleEndian.Uint16(b))
	case KindUint32:
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func orUint(k Kind, b []byte, v uint64) {
	switch k {
	case KindUint8:
		b[0] |= byte(v)
	case KindUint16:
		binary.LittleEndian.PutUint16(b, binary.LittleEndian.Uint16(b)|uint16(v))
	case KindUint32:
		binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(b)|uint32(v))
	}
}
