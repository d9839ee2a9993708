// Package uf2 converts between raw byte blobs and the UF2 block container
// used to move data on and off HowFar devices over USB mass storage.
//
// A UF2 stream is a sequence of 512 byte blocks:
//
//	offset  size  field
//	0       4     magic start 0 (0x0A324655)
//	4       4     magic start 1 (0x9E5D5157)
//	8       4     flags
//	12      4     target address
//	16      4     payload size (<= 476)
//	20      4     block number
//	24      4     total blocks
//	28      4     family ID (or file size)
//	32      476   data, zero padded
//	508     4     magic end (0x0AB16F30)
//
// The layout must match the Microsoft UF2 reference tooling byte for byte.
// Encode writes 256 byte chunks. Decode tolerates foreign blocks and
// not-main-flash blocks, fills address gaps with zeros and rejects streams
// that go backwards, need unaligned or excessive padding, or mix flag words.
package uf2
