package uf2

// Encoder wraps raw bytes into a block stream
type Encoder struct {
	// FamilyID tags every block; zero leaves the family flag clear
	FamilyID uint32

	// AppStartAddr is the target address of the first byte
	AppStartAddr uint32
}

// EncoderOption configures an Encoder
type EncoderOption func(*Encoder)

// WithFamilyID sets the family written into every block
func WithFamilyID(id uint32) EncoderOption {
	return func(e *Encoder) { e.FamilyID = id }
}

// WithAppStartAddr sets the target address of the first chunk
func WithAppStartAddr(addr uint32) EncoderOption {
	return func(e *Encoder) { e.AppStartAddr = addr }
}

// NewEncoder creates an encoder for the HowFar family starting at address 0
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{FamilyID: DefaultFamilyID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode splits data into 256 byte chunks, one block each. The last chunk is
// zero padded, so the stream always covers a multiple of 256 bytes.
func (e *Encoder) Encode(data []byte) []byte {
	numBlocks := (len(data) + ChunkSize - 1) / ChunkSize

	var flags uint32
	if e.FamilyID != 0 {
		flags |= FlagFamilyIDPresent
	}

	out := make([]byte, 0, numBlocks*BlockSize)
	for blockNo := 0; blockNo < numBlocks; blockNo++ {
		ptr := blockNo * ChunkSize
		end := ptr + ChunkSize
		if end > len(data) {
			end = len(data)
		}

		chunk := make([]byte, ChunkSize)
		copy(chunk, data[ptr:end])

		b := &Block{
			Flags:       flags,
			TargetAddr:  uint32(ptr) + e.AppStartAddr,
			PayloadSize: ChunkSize,
			BlockNo:     uint32(blockNo),
			NumBlocks:   uint32(numBlocks),
			FamilyID:    e.FamilyID,
			Data:        chunk,
		}
		raw, err := b.MarshalBinary()
		if err != nil {
			// chunks are always ChunkSize bytes
			panic(err)
		}
		out = append(out, raw...)
	}
	return out
}

// Encode wraps data using the default encoder
func Encode(data []byte) []byte {
	return NewEncoder().Encode(data)
}
