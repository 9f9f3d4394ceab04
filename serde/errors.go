package serde

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat is the cause reported for a format selector outside
	// the closed set.
	ErrUnknownFormat = errors.New("serde: unknown format")
	// ErrMalformed is the cause reported when a document is not valid for
	// its declared format.
	ErrMalformed = errors.New("serde: malformed document")
	// ErrUnexpectedElement is the cause reported when a well-formed document
	// has the wrong shape for the requested target.
	ErrUnexpectedElement = errors.New("serde: unexpected element")
	// ErrPayloadTooLarge is the cause reported when the input exceeds the
	// configured byte limit.
	ErrPayloadTooLarge = errors.New("serde: payload too large")
)

// DeserializationError is the single error kind returned by the
// Deserializer. Target names the requested payload type; Cause carries the
// reader, I/O or type-engine failure.
type DeserializationError struct {
	Target string
	Cause  error
}

// Error returns the error message for DeserializationError.
func (e *DeserializationError) Error() string {
	return fmt.Sprintf("while deserializing %s: %v", e.Target, e.Cause)
}

// Unwrap returns the underlying cause of the DeserializationError.
func (e *DeserializationError) Unwrap() error {
	return e.Cause
}
