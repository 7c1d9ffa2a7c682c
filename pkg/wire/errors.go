package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldOverrun is returned when a cursor advances past the last field.
	ErrFieldOverrun = errors.New("wire: no more fields")

	// ErrFrameTooLarge is returned when a length prefix exceeds MaxFramePayload.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum payload size")

	// ErrEmptyFrame is returned when a length prefix of zero is read.
	ErrEmptyFrame = errors.New("wire: empty frame")
)

// FieldParseError reports a field that could not be converted to the
// requested type. It carries the field index and raw value so protocol
// failures are diagnosable from logs alone.
type FieldParseError struct {
	Index int
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("wire: parse field %d %q: %v", e.Index, e.Value, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }
