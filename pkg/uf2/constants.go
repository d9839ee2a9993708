package uf2

// Block framing. All header words are little-endian uint32.
const (
	MagicStart0 uint32 = 0x0A324655 // "UF2\n"
	MagicStart1 uint32 = 0x9E5D5157
	MagicEnd    uint32 = 0x0AB16F30

	// BlockSize is the fixed size of every block in a stream
	BlockSize = 512

	// HeaderSize covers the eight header words preceding the data area
	HeaderSize = 32

	// MagicEndOffset is where the trailing magic word lives
	MagicEndOffset = BlockSize - 4

	// MaxPayloadSize is the largest payload a block may declare
	MaxPayloadSize = MagicEndOffset - HeaderSize

	// ChunkSize is the payload carried by each block we write
	ChunkSize = 256

	// MaxPadding bounds the zero fill inserted between two blocks
	MaxPadding = 10 * 1024 * 1024
)

// Header flags
const (
	FlagNotMainFlash    uint32 = 0x00000001
	FlagFamilyIDPresent uint32 = 0x00002000
)

// Family identifiers
const (
	// DefaultFamilyID tags HowFar blocks
	DefaultFamilyID uint32 = 0xBABBBA4E

	// AcceptAllFamilies disables family filtering when decoding
	AcceptAllFamilies uint32 = 0
)
