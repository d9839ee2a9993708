package archive

import (
	"errors"
	"fmt"
)

var (
	ErrCaptureNotFound  = errors.New("capture not found")
	ErrInvalidCaptureID = errors.New("invalid capture id")
	ErrNoTimestamp      = errors.New("record version has no timestamp field")
	ErrDuplicateCapture = errors.New("capture already archived")
)

// DuplicateCaptureError reports a stream identical to an archived capture
type DuplicateCaptureError struct {
	Existing *Capture
}

func (e *DuplicateCaptureError) Error() string {
	return fmt.Sprintf("%v as %s (%s)", ErrDuplicateCapture, e.Existing.ID, e.Existing.Name)
}

func (e *DuplicateCaptureError) Unwrap() error { return ErrDuplicateCapture }
