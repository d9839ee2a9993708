package uf2

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Decoder unwraps a block stream into the bytes it targets
type Decoder struct {
	// TargetFamily selects which family's payload is kept.
	// AcceptAllFamilies keeps every block.
	TargetFamily uint32

	logger *logrus.Entry
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithTargetFamily selects the family whose payload is kept
func WithTargetFamily(id uint32) DecoderOption {
	return func(d *Decoder) { d.TargetFamily = id }
}

// WithLogger sets the logger used to report skipped blocks
func WithLogger(entry *logrus.Entry) DecoderOption {
	return func(d *Decoder) {
		if entry != nil {
			d.logger = entry
		}
	}
}

// NewDecoder creates a decoder that keeps HowFar family blocks
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		TargetFamily: DefaultFamilyID,
		logger:       logrus.WithField("component", "uf2"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Image is the result of decoding a stream
type Image struct {
	Data []byte

	// AppStartAddr is the target address of the first block of the
	// selected family, valid when HasAppStart is set
	AppStartAddr uint32
	HasAppStart  bool

	// Families maps every tagged family to its lowest target address
	Families map[uint32]uint32

	BlocksRead    int
	BlocksSkipped int
}

// Decode returns the concatenated payload and gap padding of the stream
func (d *Decoder) Decode(stream []byte) ([]byte, error) {
	img, err := d.DecodeImage(stream)
	if err != nil {
		return nil, err
	}
	return img.Data, nil
}

// DecodeImage decodes the stream and keeps the per-family diagnostics.
// Blocks with a bad start magic or the not-main-flash flag are skipped.
// Any structural error discards all output.
func (d *Decoder) DecodeImage(stream []byte) (*Image, error) {
	numBlocks := len(stream) / BlockSize
	if rem := len(stream) % BlockSize; rem != 0 {
		d.logger.WithFields(logrus.Fields{
			"offset": numBlocks * BlockSize,
			"bytes":  rem,
		}).Warn("ignoring trailing partial block")
	}

	img := &Image{
		Data:     make([]byte, 0, numBlocks*ChunkSize),
		Families: make(map[uint32]uint32),
	}

	var (
		currAddr     int64
		haveAddr     bool
		currFamily   uint32
		haveFamily   bool
		firstFlags   uint32
		haveFlags    bool
		flagMismatch *FlagMismatchError
	)

	for blockNo := 0; blockNo < numBlocks; blockNo++ {
		ptr := blockNo * BlockSize
		raw := stream[ptr : ptr+BlockSize]

		if !hasStartMagic(raw) {
			d.logger.WithField("offset", ptr).Warn("skipping block; bad magic")
			img.BlocksSkipped++
			continue
		}

		b := parseHeader(raw)
		if b.NotMainFlash() {
			d.logger.WithField("offset", ptr).Debug("skipping not-main-flash block")
			img.BlocksSkipped++
			continue
		}

		if b.PayloadSize > MaxPayloadSize {
			return nil, &BlockError{
				Block:  blockNo,
				Offset: ptr,
				Detail: fmt.Sprintf("declares %d bytes", b.PayloadSize),
				Err:    ErrPayloadTooLarge,
			}
		}

		tagged := b.HasFamilyID()
		if tagged && !haveFamily {
			currFamily, haveFamily = b.FamilyID, true
		}
		if !haveAddr || (tagged && b.FamilyID != currFamily) {
			currFamily, haveFamily = b.FamilyID, true
			currAddr, haveAddr = int64(b.TargetAddr), true
			if !img.HasAppStart && d.accepts(b.FamilyID) {
				img.AppStartAddr, img.HasAppStart = b.TargetAddr, true
			}
		}

		padding := int64(b.TargetAddr) - currAddr
		if err := checkPadding(padding); err != nil {
			return nil, &BlockError{
				Block:  blockNo,
				Offset: ptr,
				Detail: fmt.Sprintf("target 0x%08X, current 0x%08X", b.TargetAddr, currAddr),
				Err:    err,
			}
		}
		img.Data = append(img.Data, make([]byte, padding)...)

		if d.TargetFamily == AcceptAllFamilies || (tagged && b.FamilyID == d.TargetFamily) {
			img.Data = append(img.Data, b.Payload()...)
		}
		currAddr = int64(b.TargetAddr) + int64(b.PayloadSize)

		if tagged {
			if low, seen := img.Families[b.FamilyID]; !seen || b.TargetAddr < low {
				img.Families[b.FamilyID] = b.TargetAddr
			}
		}

		if !haveFlags {
			firstFlags, haveFlags = b.Flags, true
		} else if b.Flags != firstFlags && flagMismatch == nil {
			flagMismatch = &FlagMismatchError{Expected: firstFlags, Got: b.Flags, Block: blockNo}
		}
		img.BlocksRead++
	}

	if flagMismatch != nil {
		return nil, flagMismatch
	}
	return img, nil
}

func (d *Decoder) accepts(family uint32) bool {
	return d.TargetFamily == AcceptAllFamilies || d.TargetFamily == family
}

func checkPadding(padding int64) error {
	switch {
	case padding < 0:
		return ErrOutOfOrder
	case padding > MaxPadding:
		return ErrPaddingTooLarge
	case padding%4 != 0:
		return ErrMisalignedPadding
	}
	return nil
}

// Decode unwraps a stream using the default decoder
func Decode(stream []byte) ([]byte, error) {
	return NewDecoder().Decode(stream)
}
