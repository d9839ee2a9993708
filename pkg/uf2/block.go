package uf2

import (
	"encoding/binary"
	"fmt"
)

// Block is one 512 byte container unit
type Block struct {
	Flags       uint32
	TargetAddr  uint32
	PayloadSize uint32
	BlockNo     uint32
	NumBlocks   uint32
	FamilyID    uint32 // file size when FlagFamilyIDPresent is clear
	Data        []byte // at most MaxPayloadSize bytes
}

// HasFamilyID reports whether FamilyID is a family tag
func (b *Block) HasFamilyID() bool {
	return b.Flags&FlagFamilyIDPresent != 0
}

// NotMainFlash reports whether the block must not be written to flash
func (b *Block) NotMainFlash() bool {
	return b.Flags&FlagNotMainFlash != 0
}

// Payload returns the declared payload bytes
func (b *Block) Payload() []byte {
	n := int(b.PayloadSize)
	if n > len(b.Data) {
		n = len(b.Data)
	}
	return b.Data[:n]
}

// MarshalBinary lays the block out as Magic0 Magic1 Flags Addr Size BlockNo
// NumBlocks Family Data... MagicEnd, zero filling the unused data area
func (b *Block) MarshalBinary() ([]byte, error) {
	if len(b.Data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes of block data", ErrPayloadTooLarge, len(b.Data))
	}

	buf := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(buf[0:], MagicStart0)
	binary.LittleEndian.PutUint32(buf[4:], MagicStart1)
	binary.LittleEndian.PutUint32(buf[8:], b.Flags)
	binary.LittleEndian.PutUint32(buf[12:], b.TargetAddr)
	binary.LittleEndian.PutUint32(buf[16:], b.PayloadSize)
	binary.LittleEndian.PutUint32(buf[20:], b.BlockNo)
	binary.LittleEndian.PutUint32(buf[24:], b.NumBlocks)
	binary.LittleEndian.PutUint32(buf[28:], b.FamilyID)
	copy(buf[HeaderSize:], b.Data)
	binary.LittleEndian.PutUint32(buf[MagicEndOffset:], MagicEnd)

	return buf, nil
}

// hasStartMagic checks the two leading magic words of a raw block
func hasStartMagic(raw []byte) bool {
	return binary.LittleEndian.Uint32(raw[0:4]) == MagicStart0 &&
		binary.LittleEndian.Uint32(raw[4:8]) == MagicStart1
}

// parseHeader decodes the header words of a raw block. The data area is a
// non-owning view into raw.
func parseHeader(raw []byte) *Block {
	return &Block{
		Flags:       binary.LittleEndian.Uint32(raw[8:12]),
		TargetAddr:  binary.LittleEndian.Uint32(raw[12:16]),
		PayloadSize: binary.LittleEndian.Uint32(raw[16:20]),
		BlockNo:     binary.LittleEndian.Uint32(raw[20:24]),
		NumBlocks:   binary.LittleEndian.Uint32(raw[24:28]),
		FamilyID:    binary.LittleEndian.Uint32(raw[28:32]),
		Data:        raw[HeaderSize:MagicEndOffset],
	}
}
