package edm

// Property is a structural property declaration.
type Property struct {
	Name   string
	Type   string
	Facets Facets
}

// EntityType is an entity type declaration.
type EntityType struct {
	Name                 FullQualifiedName
	BaseType             *FullQualifiedName
	Abstract             bool
	Key                  []string
	Properties           []Property
	NavigationProperties []NavigationProperty
}

// Property returns the structural property called name.
func (t *EntityType) Property(name string) (Property, bool) {
	return findProperty(t.Properties, name)
}

// NavigationProperty returns the navigation property called name.
func (t *EntityType) NavigationProperty(name string) (*NavigationProperty, bool) {
	for i := range t.NavigationProperties {
		if t.NavigationProperties[i].Name == name {
			return &t.NavigationProperties[i], true
		}
	}
	return nil, false
}

// ComplexType is a complex (structured, keyless) type declaration.
type ComplexType struct {
	Name       FullQualifiedName
	BaseType   *FullQualifiedName
	Abstract   bool
	Properties []Property
}

// Property returns the structural property called name.
func (t *ComplexType) Property(name string) (Property, bool) {
	return findProperty(t.Properties, name)
}

func findProperty(props []Property, name string) (Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Model is the entity-model graph consulted by readers and resolvers.
// Implementations must be safe for concurrent reads.
type Model interface {
	EntityType(name FullQualifiedName) (*EntityType, bool)
	ComplexType(name FullQualifiedName) (*ComplexType, bool)
}

// SchemaModel is an immutable in-memory Model.
type SchemaModel struct {
	entities  map[FullQualifiedName]*EntityType
	complexes map[FullQualifiedName]*ComplexType
}

var _ Model = (*SchemaModel)(nil)

// NewSchemaModel builds a model from type declarations. The declarations
// are copied; inherited properties, keys and navigation properties are
// copied into the derived types so lookups never walk the hierarchy.
func NewSchemaModel(entities []*EntityType, complexes []*ComplexType) *SchemaModel {
	m := &SchemaModel{
		entities:  make(map[FullQualifiedName]*EntityType, len(entities)),
		complexes: make(map[FullQualifiedName]*ComplexType, len(complexes)),
	}
	ents := make([]*EntityType, 0, len(entities))
	for _, e := range entities {
		c := *e
		c.Key = append([]string(nil), e.Key...)
		c.Properties = append([]Property(nil), e.Properties...)
		c.NavigationProperties = append([]NavigationProperty(nil), e.NavigationProperties...)
		m.entities[c.Name] = &c
		ents = append(ents, &c)
	}
	cplx := make([]*ComplexType, 0, len(complexes))
	for _, ct := range complexes {
		c := *ct
		c.Properties = append([]Property(nil), ct.Properties...)
		m.complexes[c.Name] = &c
		cplx = append(cplx, &c)
	}
	done := make(map[FullQualifiedName]bool)
	for _, e := range ents {
		m.inheritEntity(e, done, make(map[FullQualifiedName]bool))
	}
	cdone := make(map[FullQualifiedName]bool)
	for _, c := range cplx {
		m.inheritComplex(c, cdone, make(map[FullQualifiedName]bool))
	}
	return m
}

func (m *SchemaModel) inheritEntity(e *EntityType, done, visiting map[FullQualifiedName]bool) {
	if done[e.Name] || visiting[e.Name] || e.BaseType == nil {
		done[e.Name] = true
		return
	}
	visiting[e.Name] = true
	base, ok := m.entities[*e.BaseType]
	if ok {
		m.inheritEntity(base, done, visiting)
		e.Properties = mergeProperties(base.Properties, e.Properties)
		if len(e.Key) == 0 {
			e.Key = append([]string(nil), base.Key...)
		}
		for _, np := range base.NavigationProperties {
			if _, exists := e.NavigationProperty(np.Name); !exists {
				e.NavigationProperties = append(e.NavigationProperties, np)
			}
		}
	}
	done[e.Name] = true
}

func (m *SchemaModel) inheritComplex(c *ComplexType, done, visiting map[FullQualifiedName]bool) {
	if done[c.Name] || visiting[c.Name] || c.BaseType == nil {
		done[c.Name] = true
		return
	}
	visiting[c.Name] = true
	if base, ok := m.complexes[*c.BaseType]; ok {
		m.inheritComplex(base, done, visiting)
		c.Properties = mergeProperties(base.Properties, c.Properties)
	}
	done[c.Name] = true
}

// mergeProperties returns inherited properties first, then own ones not
// shadowing an inherited name.
func mergeProperties(inherited, own []Property) []Property {
	out := make([]Property, 0, len(inherited)+len(own))
	out = append(out, inherited...)
	for _, p := range own {
		if _, exists := findProperty(inherited, p.Name); !exists {
			out = append(out, p)
		}
	}
	return out
}

// EntityType implements Model.
func (m *SchemaModel) EntityType(name FullQualifiedName) (*EntityType, bool) {
	e, ok := m.entities[name]
	return e, ok
}

// ComplexType implements Model.
func (m *SchemaModel) ComplexType(name FullQualifiedName) (*ComplexType, bool) {
	c, ok := m.complexes[name]
	return c, ok
}

// NumEntityTypes returns the number of entity types in the model.
func (m *SchemaModel) NumEntityTypes() int {
	return len(m.entities)
}
