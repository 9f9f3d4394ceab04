package edm

import "fmt"

// Facets bundles the per-call constraints that modify how a primitive value
// is validated and formatted. A nil pointer means the facet is unspecified.
// Facets are passed by value and never modified by a descriptor.
type Facets struct {
	Nullable  *bool
	MaxLength *int
	Precision *int
	Scale     *int
	Unicode   *bool
	// SRID constrains geospatial values to one spatial reference system.
	SRID *int
}

// NoFacets returns an empty facet bundle.
func NoFacets() Facets {
	return Facets{}
}

// WithNullable returns a copy of f with the nullable facet set.
func (f Facets) WithNullable(v bool) Facets {
	f.Nullable = &v
	return f
}

// WithMaxLength returns a copy of f with the maxLength facet set.
func (f Facets) WithMaxLength(n int) Facets {
	f.MaxLength = &n
	return f
}

// WithPrecision returns a copy of f with the precision facet set.
func (f Facets) WithPrecision(n int) Facets {
	f.Precision = &n
	return f
}

// WithScale returns a copy of f with the scale facet set.
func (f Facets) WithScale(n int) Facets {
	f.Scale = &n
	return f
}

// WithUnicode returns a copy of f with the unicode facet set.
func (f Facets) WithUnicode(v bool) Facets {
	f.Unicode = &v
	return f
}

// WithSRID returns a copy of f with the SRID facet set.
func (f Facets) WithSRID(n int) Facets {
	f.SRID = &n
	return f
}

// IsNullable reports whether null is acceptable. An unspecified nullable
// facet admits null.
func (f Facets) IsNullable() bool {
	return f.Nullable == nil || *f.Nullable
}

// CheckNull reports a FacetViolationError when a null value is presented to
// a type whose facets forbid it.
func CheckNull(typeName string, f Facets) error {
	if f.IsNullable() {
		return nil
	}
	return &FacetViolationError{TypeName: typeName, Facet: "nullable", Detail: "null value for non-nullable type"}
}

func (f Facets) checkMaxLength(typeName string, n int) error {
	if f.MaxLength != nil && n > *f.MaxLength {
		return &FacetViolationError{
			TypeName: typeName,
			Facet:    "maxLength",
			Detail:   fmt.Sprintf("length %d exceeds %d", n, *f.MaxLength),
		}
	}
	return nil
}
