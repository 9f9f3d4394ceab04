// Package csdl loads an OData $metadata document (CSDL XML) into an
// edm.SchemaModel. Only the parts the payload readers consult are kept:
// entity types, complex types, their properties with facets, and
// navigation properties with referential constraints.
package csdl

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/CaliLuke/go-odata/edm"
)

// Edmx is the document root.
type Edmx struct {
	Version      string       `xml:"Version,attr"`
	DataServices DataServices `xml:"DataServices"`
}

// DataServices holds the schemas of the document.
type DataServices struct {
	Schema []Schema `xml:"Schema"`
}

// Schema is one namespace of type declarations.
type Schema struct {
	Namespace   string        `xml:"Namespace,attr"`
	Alias       string        `xml:"Alias,attr"`
	EntityType  []EntityType  `xml:"EntityType"`
	ComplexType []ComplexType `xml:"ComplexType"`
}

// EntityType declares a keyed structured type.
type EntityType struct {
	Name               string               `xml:"Name,attr"`
	BaseType           string               `xml:"BaseType,attr"`
	Abstract           bool                 `xml:"Abstract,attr"`
	Key                *Key                 `xml:"Key"`
	Property           []Property           `xml:"Property"`
	NavigationProperty []NavigationProperty `xml:"NavigationProperty"`
}

// ComplexType declares a keyless structured type.
type ComplexType struct {
	Name     string     `xml:"Name,attr"`
	BaseType string     `xml:"BaseType,attr"`
	Abstract bool       `xml:"Abstract,attr"`
	Property []Property `xml:"Property"`
}

// Key lists the key properties of an entity type.
type Key struct {
	PropertyRef []PropertyRef `xml:"PropertyRef"`
}

// PropertyRef names one key property.
type PropertyRef struct {
	Name string `xml:"Name,attr"`
}

// Property facets are kept as strings: MaxLength may be "max", Scale and
// SRID may be "variable".
type Property struct {
	Name      string `xml:"Name,attr"`
	Type      string `xml:"Type,attr"`
	Nullable  *bool  `xml:"Nullable,attr"`
	MaxLength string `xml:"MaxLength,attr"`
	Unicode   *bool  `xml:"Unicode,attr"`
	Precision string `xml:"Precision,attr"`
	Scale     string `xml:"Scale,attr"`
	SRID      string `xml:"SRID,attr"`
}

// NavigationProperty declares a relationship to another entity type.
type NavigationProperty struct {
	Name                  string                  `xml:"Name,attr"`
	Type                  string                  `xml:"Type,attr"`
	Nullable              *bool                   `xml:"Nullable,attr"`
	Partner               string                  `xml:"Partner,attr"`
	ContainsTarget        bool                    `xml:"ContainsTarget,attr"`
	ReferentialConstraint []ReferentialConstraint `xml:"ReferentialConstraint"`
}

// ReferentialConstraint pairs a dependent property with the principal
// property it references.
type ReferentialConstraint struct {
	Property           string `xml:"Property,attr"`
	ReferencedProperty string `xml:"ReferencedProperty,attr"`
}

// Load decodes a CSDL document and builds the model.
func Load(r io.Reader) (*edm.SchemaModel, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	var doc Edmx
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("csdl: decode: %w", err)
	}
	return doc.Model()
}

// LoadFile loads the CSDL document at path.
func LoadFile(path string) (*edm.SchemaModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csdl: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Model converts the decoded document. Type references written with a
// schema alias are rewritten to the schema namespace.
func (doc *Edmx) Model() (*edm.SchemaModel, error) {
	aliases := make(map[string]string)
	for _, s := range doc.DataServices.Schema {
		if s.Namespace == "" {
			return nil, fmt.Errorf("csdl: schema without namespace")
		}
		if s.Alias != "" {
			aliases[s.Alias] = s.Namespace
		}
	}

	var (
		entities  []*edm.EntityType
		complexes []*edm.ComplexType
	)
	for _, s := range doc.DataServices.Schema {
		for _, et := range s.EntityType {
			e, err := et.convert(s.Namespace, aliases)
			if err != nil {
				return nil, err
			}
			entities = append(entities, e)
		}
		for _, ct := range s.ComplexType {
			c, err := ct.convert(s.Namespace, aliases)
			if err != nil {
				return nil, err
			}
			complexes = append(complexes, c)
		}
	}
	log.Debugf("loaded %d entity types, %d complex types", len(entities), len(complexes))
	return edm.NewSchemaModel(entities, complexes), nil
}

func (et *EntityType) convert(ns string, aliases map[string]string) (*edm.EntityType, error) {
	e := &edm.EntityType{
		Name:     edm.FullQualifiedName{Namespace: ns, Name: et.Name},
		Abstract: et.Abstract,
	}
	if et.BaseType != "" {
		base := edm.NewFQN(resolveAlias(et.BaseType, aliases))
		e.BaseType = &base
	}
	if et.Key != nil {
		for _, ref := range et.Key.PropertyRef {
			e.Key = append(e.Key, ref.Name)
		}
	}
	for i := range et.Property {
		p, err := et.Property[i].convert(aliases)
		if err != nil {
			return nil, fmt.Errorf("csdl: %s.%s: %w", ns, et.Name, err)
		}
		e.Properties = append(e.Properties, p)
	}
	for _, np := range et.NavigationProperty {
		nav := edm.NavigationProperty{
			Name:           np.Name,
			Type:           resolveAlias(np.Type, aliases),
			Nullable:       np.Nullable,
			Partner:        np.Partner,
			ContainsTarget: np.ContainsTarget,
		}
		for _, rc := range np.ReferentialConstraint {
			nav.ReferentialConstraints = append(nav.ReferentialConstraints, edm.ReferentialConstraint{
				Property:           rc.Property,
				ReferencedProperty: rc.ReferencedProperty,
			})
		}
		e.NavigationProperties = append(e.NavigationProperties, nav)
	}
	return e, nil
}

func (ct *ComplexType) convert(ns string, aliases map[string]string) (*edm.ComplexType, error) {
	c := &edm.ComplexType{
		Name:     edm.FullQualifiedName{Namespace: ns, Name: ct.Name},
		Abstract: ct.Abstract,
	}
	if ct.BaseType != "" {
		base := edm.NewFQN(resolveAlias(ct.BaseType, aliases))
		c.BaseType = &base
	}
	for i := range ct.Property {
		p, err := ct.Property[i].convert(aliases)
		if err != nil {
			return nil, fmt.Errorf("csdl: %s.%s: %w", ns, ct.Name, err)
		}
		c.Properties = append(c.Properties, p)
	}
	return c, nil
}

func (p *Property) convert(aliases map[string]string) (edm.Property, error) {
	f := edm.NoFacets()
	if p.Nullable != nil {
		f = f.WithNullable(*p.Nullable)
	}
	if p.Unicode != nil {
		f = f.WithUnicode(*p.Unicode)
	}
	for _, facet := range []struct {
		name  string
		value string
		set   func(edm.Facets, int) edm.Facets
	}{
		{"MaxLength", p.MaxLength, edm.Facets.WithMaxLength},
		{"Precision", p.Precision, edm.Facets.WithPrecision},
		{"Scale", p.Scale, edm.Facets.WithScale},
		{"SRID", p.SRID, edm.Facets.WithSRID},
	} {
		n, ok, err := intFacet(facet.value)
		if err != nil {
			return edm.Property{}, fmt.Errorf("property %s: %s: %w", p.Name, facet.name, err)
		}
		if ok {
			f = facet.set(f, n)
		}
	}
	return edm.Property{Name: p.Name, Type: resolveAlias(p.Type, aliases), Facets: f}, nil
}

// intFacet parses a numeric facet; "max", "variable" and absent values
// mean no constraint.
func intFacet(s string) (int, bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "max", "variable", "floating":
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// resolveAlias rewrites "Alias.Name" and "Collection(Alias.Name)".
func resolveAlias(typ string, aliases map[string]string) string {
	ti, err := edm.ParseTypeInfo(typ)
	if err != nil {
		return typ
	}
	if ns, ok := aliases[ti.FQN.Namespace]; ok {
		ti.FQN.Namespace = ns
	}
	return ti.String()
}
