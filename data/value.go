package data

// Value is the marker interface for property values.
type Value interface {
	value()
}

// Primitive is a primitive or geospatial value. Type is the qualified EDM
// type name, or empty when the source carried no type information and none
// could be inferred.
type Primitive struct {
	Type  string
	Value any
}

func (Primitive) value() {}

// Complex is a structured value.
type Complex struct {
	Type       string
	Properties []*Property
}

func (Complex) value() {}

// Property returns the nested property called name.
func (c Complex) Property(name string) (*Property, bool) {
	return findProperty(c.Properties, name)
}

// Collection is an ordered collection of values.
type Collection struct {
	Type  string
	Items []Value
}

func (Collection) value() {}

// Null is an explicit null of the given type.
type Null struct {
	Type string
}

func (Null) value() {}

// Property is a named value.
type Property struct {
	Name  string
	Type  string
	Value Value
}

// Primitive returns the Go value of a primitive property.
func (p *Property) Primitive() (any, bool) {
	v, ok := p.Value.(Primitive)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

// IsNull reports whether the property value is null.
func (p *Property) IsNull() bool {
	_, ok := p.Value.(Null)
	return ok || p.Value == nil
}

func findProperty(props []*Property, name string) (*Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
