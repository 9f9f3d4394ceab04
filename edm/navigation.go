package edm

// ReferentialConstraint pairs a property of the navigating entity with the
// key property it references on the target entity.
type ReferentialConstraint struct {
	Property           string
	ReferencedProperty string
}

// NavigationProperty is a typed relationship as declared in the entity
// model. It is immutable once the model is loaded.
type NavigationProperty struct {
	Name string
	// Type is the declared type string, e.g. "NS.Order" or "Collection(NS.Order)".
	Type                   string
	Nullable               *bool
	Partner                string
	ContainsTarget         bool
	ReferentialConstraints []ReferentialConstraint
}

// NavigationResolver answers questions about one navigation property. It
// only reads the property and the model it is given.
type NavigationResolver struct {
	prop *NavigationProperty
	info TypeInfo
}

// NewNavigationResolver parses the declared type of np once.
func NewNavigationResolver(np *NavigationProperty) (*NavigationResolver, error) {
	info, err := ParseTypeInfo(np.Type)
	if err != nil {
		return nil, err
	}
	return &NavigationResolver{prop: np, info: info}, nil
}

// Name returns the navigation property name.
func (r *NavigationResolver) Name() string {
	return r.prop.Name
}

// TargetType returns the qualified name of the target entity type, with any
// collection wrapper removed.
func (r *NavigationResolver) TargetType() FullQualifiedName {
	return r.info.FQN
}

// IsCollection reports whether the declared type is a collection.
func (r *NavigationResolver) IsCollection() bool {
	return r.info.Collection
}

// IsNullable returns the declared nullability. Nil means unspecified.
func (r *NavigationResolver) IsNullable() *bool {
	return r.prop.Nullable
}

// PartnerName returns the partner navigation property, if declared.
func (r *NavigationResolver) PartnerName() (string, bool) {
	return r.prop.Partner, r.prop.Partner != ""
}

// ReferencingPropertyFor returns the referencing property of the first
// constraint, in declaration order, whose referenced property equals
// referenced.
func (r *NavigationResolver) ReferencingPropertyFor(referenced string) (string, bool) {
	for _, c := range r.prop.ReferentialConstraints {
		if c.ReferencedProperty == referenced {
			return c.Property, true
		}
	}
	return "", false
}

// Target resolves the target entity type in model.
func (r *NavigationResolver) Target(model Model) (*EntityType, bool) {
	if model == nil {
		return nil, false
	}
	return model.EntityType(r.info.FQN)
}
