package ringfs

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrCorrupted          = errors.New("filesystem corrupted")
	ErrUnsupportedVersion = errors.New("unsupported record version")
	ErrTruncatedImage     = errors.New("truncated flash image")
	ErrNoRecordCapacity   = errors.New("record does not fit in a slot")
	ErrEmptyFilesystem    = errors.New("filesystem has no in-use sectors")
	ErrDuplicateVersion   = errors.New("duplicate record version")
)

// CorruptedError reports in-use sectors that disagree on the format version
type CorruptedError struct {
	Sector   int
	Version  uint32
	Conflict uint32
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("filesystem has inconsistent header versions %d vs %d (sector %d)",
		e.Version, e.Conflict, e.Sector)
}

func (e *CorruptedError) Unwrap() error { return ErrCorrupted }

// UnsupportedVersionError reports a format version missing from the registry
type UnsupportedVersionError struct {
	Version uint32
	Known   []uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported record version %d (known: %v)", e.Version, e.Known)
}

func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }

// TruncatedImageError reports a read that would fall outside the image
type TruncatedImageError struct {
	Offset int
	Size   int
	Length int
}

func (e *TruncatedImageError) Error() string {
	if e.Size == 0 {
		return fmt.Sprintf("truncated flash image: length %d is not a positive multiple of %d", e.Length, SectorSize)
	}
	return fmt.Sprintf("truncated flash image: read of %d bytes at offset %d exceeds length %d",
		e.Size, e.Offset, e.Length)
}

func (e *TruncatedImageError) Unwrap() error { return ErrTruncatedImage }

// RecordCapacityError reports a record too large for a single slot
type RecordCapacityError struct {
	Version    uint32
	RecordSize int
}

func (e *RecordCapacityError) Error() string {
	if e.RecordSize == 0 {
		return fmt.Sprintf("version %d: record layout is empty", e.Version)
	}
	return fmt.Sprintf("version %d: record of %d bytes does not fit in a %d byte slot payload",
		e.Version, e.RecordSize, PageSize-SlotHeaderLayout.Size())
}

func (e *RecordCapacityError) Unwrap() error { return ErrNoRecordCapacity }
