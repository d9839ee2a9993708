// Package codec provides fixed-size binary layouts for HowFar on-flash
// structures.
//
// A Layout is declared as an ordered list of fields. Offsets are assigned
// contiguously in declaration order with no implicit padding, and all
// multi-byte integers are little-endian. The total size is known as soon as
// the layout is built, which is what the ring filesystem reader uses to size
// its per-page record windows.
//
// # Field kinds
//
//   - Uint8, Uint16, Uint32: unsigned integers
//   - Bytes(n): fixed-length byte or character array, zero padded on encode
//   - BitGroup(host, Bit(...), ...): bit-fields packed LSB first into a
//     single Uint16 or Uint32 host integer
//
// # Usage
//
//	header := codec.MustLayout("sector_header",
//	    codec.Uint32("status"),
//	    codec.Uint32("version"),
//	)
//
//	rec, err := header.Decode(buf)
//	if err != nil {
//	    return err // *SizeError when buf is too short
//	}
//	status, _ := rec.Uint("status")
//
// Encoding goes the other way and always yields exactly Size() bytes:
//
//	rec := codec.NewRecord(header)
//	_ = rec.SetUint("status", 0xFFFF0000)
//	blob := rec.Encode()
//
// # Error Handling
//
// Decode fails with a *SizeError (matching ErrSizeMismatch) on short input.
// Accessors return ErrUnknownField, ErrFieldKind or ErrValueRange wrapped with
// the field name. Malformed declarations produce a *LayoutError.
//
// # Thread Safety
//
// Layouts are immutable and safe to share. Records are plain values and must
// not be mutated concurrently.
package codec
