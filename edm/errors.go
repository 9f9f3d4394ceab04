package edm

import "fmt"

// InvalidLexicalFormError is returned when a lexical string does not match
// the grammar of the descriptor it was given to.
type InvalidLexicalFormError struct {
	TypeName string
	Lexical  string
	Cause    error
}

// Error returns the error message for InvalidLexicalFormError.
func (e *InvalidLexicalFormError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: invalid lexical form %q: %v", e.TypeName, e.Lexical, e.Cause)
	}
	return fmt.Sprintf("%s: invalid lexical form %q", e.TypeName, e.Lexical)
}

// Unwrap returns the underlying cause of the InvalidLexicalFormError.
func (e *InvalidLexicalFormError) Unwrap() error {
	return e.Cause
}

// FacetViolationError is returned when a value parses or is well typed but
// falls outside the constraints declared by its facets.
type FacetViolationError struct {
	TypeName string
	Facet    string // "nullable", "maxLength", "precision", "scale", "unicode", "srid"
	Detail   string
}

// Error returns the error message for FacetViolationError.
func (e *FacetViolationError) Error() string {
	return fmt.Sprintf("%s: %s facet violated: %s", e.TypeName, e.Facet, e.Detail)
}

// UnsupportedValueKindError is returned when a descriptor is asked to format
// a Go value whose runtime kind it does not own.
type UnsupportedValueKindError struct {
	TypeName string
	Value    any
}

// Error returns the error message for UnsupportedValueKindError.
func (e *UnsupportedValueKindError) Error() string {
	return fmt.Sprintf("%s: unsupported value of kind %T", e.TypeName, e.Value)
}

// UnknownTypeError is returned when no descriptor is registered under the
// requested type name.
type UnknownTypeError struct {
	TypeName string
}

// Error returns the error message for UnknownTypeError.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("type %q is not registered", e.TypeName)
}

// NotImplementedError is returned by operations that are structurally
// absent for a type, such as parsing through a dimension-general
// geospatial descriptor.
type NotImplementedError struct {
	TypeName  string
	Operation string
}

// Error returns the error message for NotImplementedError.
func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %s is not implemented", e.TypeName, e.Operation)
}
