package abicodec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the class of all encoder input validation failures.
	ErrInvalidInput = errors.New("abicodec: invalid input")
	// ErrMalformed is the class of all decoding failures.
	ErrMalformed = errors.New("abicodec: malformed data")
)

// ValidationError reports malformed fixed-width input to an encoder.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("abicodec: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// DecodingError reports a buffer that does not hold what its headers declare.
type DecodingError struct {
	Offset int
	Reason string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("abicodec: malformed data at byte %d: %s", e.Offset, e.Reason)
}

func (e *DecodingError) Unwrap() error { return ErrMalformed }
