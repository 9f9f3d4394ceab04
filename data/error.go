package data

import "fmt"

// ErrorDetail is one entry of an error's details array.
type ErrorDetail struct {
	Code    string
	Message string
	Target  string
}

// Error is a service error payload. It implements the error interface so
// callers can return it directly.
type Error struct {
	Code       string
	Message    string
	Target     string
	Details    []ErrorDetail
	InnerError map[string]any
}

// Error returns the error message for Error.
func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("odata error %s: %s (target %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("odata error %s: %s", e.Code, e.Message)
}
