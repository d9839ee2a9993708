package uf2

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge   = errors.New("payload size exceeds block capacity")
	ErrOutOfOrder        = errors.New("block out of order")
	ErrPaddingTooLarge   = errors.New("more than 10M of padding needed")
	ErrMisalignedPadding = errors.New("non-word padding size")
	ErrFlagMismatch      = errors.New("flag mismatch - corrupted file?")
)

// BlockError reports a malformed block that aborts decoding
type BlockError struct {
	Block  int
	Offset int
	Detail string
	Err    error
}

func (e *BlockError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("block %d at offset %d: %v", e.Block, e.Offset, e.Err)
	}
	return fmt.Sprintf("block %d at offset %d: %v (%s)", e.Block, e.Offset, e.Err, e.Detail)
}

func (e *BlockError) Unwrap() error { return e.Err }

// FlagMismatchError reports blocks whose flags differ from the first block
type FlagMismatchError struct {
	Expected uint32
	Got      uint32
	Block    int // first block that differed
}

func (e *FlagMismatchError) Error() string {
	return fmt.Sprintf("%v: block %d has flags 0x%08X, first block had 0x%08X",
		ErrFlagMismatch, e.Block, e.Got, e.Expected)
}

func (e *FlagMismatchError) Unwrap() error { return ErrFlagMismatch }
