package edm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Dimension distinguishes round-earth (Geography) from flat-earth
// (Geometry) coordinates.
type Dimension int

const (
	// Geography values use an ellipsoidal coordinate system.
	Geography Dimension = iota
	// Geometry values use a flat coordinate system.
	Geometry
)

// String returns "Geography" or "Geometry".
func (d Dimension) String() string {
	switch d {
	case Geography:
		return "Geography"
	case Geometry:
		return "Geometry"
	default:
		return "Dimension(" + strconv.Itoa(int(d)) + ")"
	}
}

func (d Dimension) keyword() string {
	return strings.ToLower(d.String())
}

// DefaultSRID is the SRID assumed when a literal omits one.
func (d Dimension) DefaultSRID() int {
	if d == Geography {
		return 4326
	}
	return 0
}

// Shape is the closed set of geospatial shapes.
type Shape int

const (
	// ShapePoint is a single position.
	ShapePoint Shape = iota
	// ShapeLineString is an open sequence of positions.
	ShapeLineString
	// ShapePolygon is an outer ring with optional holes.
	ShapePolygon
	// ShapeMultiPoint is a set of points.
	ShapeMultiPoint
	// ShapeMultiLineString is a set of line strings.
	ShapeMultiLineString
	// ShapeMultiPolygon is a set of polygons.
	ShapeMultiPolygon
	// ShapeCollection holds shapes of any kind.
	ShapeCollection
)

var allShapes = []Shape{
	ShapePoint,
	ShapeLineString,
	ShapePolygon,
	ShapeMultiPoint,
	ShapeMultiLineString,
	ShapeMultiPolygon,
	ShapeCollection,
}

var shapeNames = map[Shape]string{
	ShapePoint:           "Point",
	ShapeLineString:      "LineString",
	ShapePolygon:         "Polygon",
	ShapeMultiPoint:      "MultiPoint",
	ShapeMultiLineString: "MultiLineString",
	ShapeMultiPolygon:    "MultiPolygon",
	ShapeCollection:      "Collection",
}

// Shapes returns the seven shapes in declaration order.
func Shapes() []Shape {
	return append([]Shape(nil), allShapes...)
}

// String returns the literal keyword of the shape, e.g. "MultiPoint".
func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "Shape(" + strconv.Itoa(int(s)) + ")"
}

func parseShapeName(name string) (Shape, bool) {
	for _, s := range allShapes {
		if strings.EqualFold(shapeNames[s], name) {
			return s, true
		}
	}
	return 0, false
}

// ShapeOf maps an orb geometry to its shape. orb types outside the seven
// shapes (orb.Ring, orb.Bound) report false.
func ShapeOf(g orb.Geometry) (Shape, bool) {
	switch g.(type) {
	case orb.Point:
		return ShapePoint, true
	case orb.LineString:
		return ShapeLineString, true
	case orb.Polygon:
		return ShapePolygon, true
	case orb.MultiPoint:
		return ShapeMultiPoint, true
	case orb.MultiLineString:
		return ShapeMultiLineString, true
	case orb.MultiPolygon:
		return ShapeMultiPolygon, true
	case orb.Collection:
		return ShapeCollection, true
	}
	return 0, false
}

// Geospatial is a geospatial value: a shape tagged with its dimension and
// spatial reference system.
type Geospatial struct {
	Dimension Dimension
	SRID      int
	Shape     orb.Geometry
}

// NewGeography tags shape as a Geography value in SRID 4326.
func NewGeography(shape orb.Geometry) Geospatial {
	return Geospatial{Dimension: Geography, SRID: Geography.DefaultSRID(), Shape: shape}
}

// NewGeometry tags shape as a Geometry value in SRID 0.
func NewGeometry(shape orb.Geometry) Geospatial {
	return Geospatial{Dimension: Geometry, SRID: Geometry.DefaultSRID(), Shape: shape}
}

func geospatialValue(v any) (Geospatial, bool) {
	switch g := v.(type) {
	case Geospatial:
		return g, true
	case *Geospatial:
		if g != nil {
			return *g, true
		}
	}
	return Geospatial{}, false
}

// GeoDescriptor is implemented by every geospatial descriptor.
type GeoDescriptor interface {
	Descriptor
	Dimension() Dimension
}

// ShapeDescriptor is implemented by the shape-specific geospatial
// descriptors.
type ShapeDescriptor interface {
	GeoDescriptor
	Shape() Shape
}

var (
	_ ShapeDescriptor = geoDescriptor{}
	_ GeoDescriptor   = geoAnyDescriptor{}
)

// geoDescriptor owns one (dimension, shape) pair, e.g. Edm.GeographyPoint.
type geoDescriptor struct {
	dim   Dimension
	shape Shape
}

func (d geoDescriptor) Name() string {
	return EdmNamespace + "." + d.dim.String() + d.shape.String()
}

// Kind reports KindGeospatial.
func (geoDescriptor) Kind() Kind { return KindGeospatial }

// Dimension returns the dimension served by the descriptor.
func (d geoDescriptor) Dimension() Dimension { return d.dim }

// Shape returns the shape served by the descriptor.
func (d geoDescriptor) Shape() Shape { return d.shape }

// ValueOfString parses literals such as
// geography'SRID=4326;Point(1 2)' or SRID=0;LineString(0 0,1 1).
func (d geoDescriptor) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(d.Name(), f)
	}
	lit, err := parseGeoLiteral(s)
	if err != nil {
		return nil, &InvalidLexicalFormError{TypeName: d.Name(), Lexical: s, Cause: err}
	}
	if lit.prefix != "" && !strings.EqualFold(lit.prefix, d.dim.keyword()) {
		return nil, &InvalidLexicalFormError{
			TypeName: d.Name(),
			Lexical:  s,
			Cause:    fmt.Errorf("%s literal given to %s descriptor", lit.prefix, d.dim),
		}
	}
	if lit.shape != d.shape {
		return nil, &InvalidLexicalFormError{
			TypeName: d.Name(),
			Lexical:  s,
			Cause:    fmt.Errorf("%s literal given to %s descriptor", lit.shape, d.shape),
		}
	}
	srid := d.dim.DefaultSRID()
	if lit.srid != nil {
		srid = *lit.srid
	}
	if err := d.checkSRID(srid, f); err != nil {
		return nil, err
	}
	return Geospatial{Dimension: d.dim, SRID: srid, Shape: lit.geometry}, nil
}

func (d geoDescriptor) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(d.Name(), f)
	}
	g, ok := geospatialValue(v)
	if !ok || g.Dimension != d.dim {
		return "", &UnsupportedValueKindError{TypeName: d.Name(), Value: v}
	}
	if shape, ok := ShapeOf(g.Shape); !ok || shape != d.shape {
		return "", &UnsupportedValueKindError{TypeName: d.Name(), Value: v}
	}
	if err := d.checkSRID(g.SRID, f); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s'SRID=%d;", d.dim.keyword(), g.SRID)
	if err := writeShape(&b, g.Shape); err != nil {
		return "", &UnsupportedValueKindError{TypeName: d.Name(), Value: v}
	}
	b.WriteByte('\'')
	return b.String(), nil
}

func (d geoDescriptor) checkSRID(srid int, f Facets) error {
	if f.SRID != nil && *f.SRID != srid {
		return &FacetViolationError{
			TypeName: d.Name(),
			Facet:    "srid",
			Detail:   fmt.Sprintf("SRID %d does not match %d", srid, *f.SRID),
		}
	}
	return nil
}

// geoAnyDescriptor is the dimension-general descriptor (Edm.Geography,
// Edm.Geometry). It formats any shape of its dimension by forwarding to the
// shape descriptor, and never parses: the lexical grammar needs the shape
// up front.
type geoAnyDescriptor struct {
	dim    Dimension
	shapes map[Shape]Descriptor
}

func (d geoAnyDescriptor) Name() string {
	return EdmNamespace + "." + d.dim.String()
}

// Kind reports KindGeospatial.
func (geoAnyDescriptor) Kind() Kind { return KindGeospatial }

// Dimension returns the dimension served by the descriptor.
func (d geoAnyDescriptor) Dimension() Dimension { return d.dim }

func (d geoAnyDescriptor) ValueOfString(string, Facets) (any, error) {
	return nil, &NotImplementedError{TypeName: d.Name(), Operation: "ValueOfString"}
}

func (d geoAnyDescriptor) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(d.Name(), f)
	}
	g, ok := geospatialValue(v)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: d.Name(), Value: v}
	}
	shape, ok := ShapeOf(g.Shape)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: d.Name(), Value: v}
	}
	target, ok := d.shapes[shape]
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: d.Name(), Value: v}
	}
	return target.ValueToString(g, f)
}

// --- formatting ---

func writeShape(b *strings.Builder, g orb.Geometry) error {
	shape, ok := ShapeOf(g)
	if !ok {
		return fmt.Errorf("unsupported geometry %T", g)
	}
	b.WriteString(shape.String())
	b.WriteByte('(')
	switch x := g.(type) {
	case orb.Point:
		writePosition(b, x)
	case orb.LineString:
		writePositions(b, x)
	case orb.Polygon:
		writeRings(b, x)
	case orb.MultiPoint:
		for i, p := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('(')
			writePosition(b, p)
			b.WriteByte(')')
		}
	case orb.MultiLineString:
		for i, ls := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('(')
			writePositions(b, ls)
			b.WriteByte(')')
		}
	case orb.MultiPolygon:
		for i, p := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('(')
			writeRings(b, p)
			b.WriteByte(')')
		}
	case orb.Collection:
		for i, member := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeShape(b, member); err != nil {
				return err
			}
		}
	}
	b.WriteByte(')')
	return nil
}

func writePosition(b *strings.Builder, p orb.Point) {
	b.WriteString(strconv.FormatFloat(p[0], 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(p[1], 'f', -1, 64))
}

func writePositions(b *strings.Builder, ps []orb.Point) {
	for i, p := range ps {
		if i > 0 {
			b.WriteByte(',')
		}
		writePosition(b, p)
	}
}

func writeRings(b *strings.Builder, rings orb.Polygon) {
	for i, r := range rings {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		writePositions(b, r)
		b.WriteByte(')')
	}
}
