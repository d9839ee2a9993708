package codec

import (
	"errors"
	"fmt"
)

var (
	ErrSizeMismatch   = errors.New("size mismatch")
	ErrUnknownField   = errors.New("unknown field")
	ErrFieldKind      = errors.New("wrong field kind")
	ErrValueRange     = errors.New("value out of range")
	ErrLayoutMismatch = errors.New("layout mismatch")
	ErrInvalidLayout  = errors.New("invalid layout")
)

// SizeError is returned when input is shorter than the declared layout
type SizeError struct {
	Layout string
	Want   int
	Got    int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: need %d bytes, got %d: %v", e.Layout, e.Want, e.Got, ErrSizeMismatch)
}

func (e *SizeError) Unwrap() error { return ErrSizeMismatch }

// LayoutError describes a malformed layout declaration
type LayoutError struct {
	Layout string
	Field  string
	Reason string
	Err    error
}

func (e *LayoutError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("layout %s: field %q: %s", e.Layout, e.Field, e.Reason)
	}
	return fmt.Sprintf("layout %s: %s", e.Layout, e.Reason)
}

func (e *LayoutError) Unwrap() error { return e.Err }
