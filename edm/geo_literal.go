package edm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/paulmach/orb"
)

// --- Participle grammar structs ---
// The grammar accepts the optional dimension wrapper, the optional SRID
// clause, and nested shape bodies. Shape-specific nesting rules are applied
// after parsing, in buildShape.

// geoLiteralP parses: [geography'|geometry'] [SRID=n;] Shape(...) [']
type geoLiteralP struct {
	Prefix string  `parser:"@Prefix?"`
	SRID   string  `parser:"( SRID @Number ';' )?"`
	Shape  *shapeP `parser:"@@"`
	Quote  string  `parser:"@Quote?"`
}

// shapeP parses: Name(body)
type shapeP struct {
	Kind string `parser:"@Ident"`
	Body *listP `parser:"@@"`
}

// listP parses a parenthesized, comma separated list of items.
type listP struct {
	Items []*itemP `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

// itemP is one of: a nested shape, a nested list, or a position.
type itemP struct {
	Shape *shapeP    `parser:"  @@"`
	Group *listP     `parser:"| @@"`
	Pos   *positionP `parser:"| @@"`
}

// positionP parses: x y
type positionP struct {
	X float64 `parser:"@Number"`
	Y float64 `parser:"@Number"`
}

var geoLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Prefix", Pattern: `(?i)(?:geography|geometry)'`},
	{Name: "SRID", Pattern: `(?i)SRID=`},
	{Name: "Number", Pattern: `[-+]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z]+`},
	{Name: "Quote", Pattern: `'`},
	{Name: "Punct", Pattern: `[(),;]`},
})

// geoParser is built once; participle parsers are safe for concurrent use.
var geoParser = participle.MustBuild[geoLiteralP](
	participle.Lexer(geoLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// geoLiteral is the converted form of a parsed literal.
type geoLiteral struct {
	prefix   string // "geography", "geometry" or empty
	srid     *int
	shape    Shape
	geometry orb.Geometry
}

func parseGeoLiteral(s string) (*geoLiteral, error) {
	ast, err := geoParser.ParseString("", s)
	if err != nil {
		return nil, err
	}
	if (ast.Prefix == "") != (ast.Quote == "") {
		return nil, fmt.Errorf("unbalanced quotes")
	}
	lit := &geoLiteral{prefix: strings.TrimSuffix(ast.Prefix, "'")}
	if ast.SRID != "" {
		srid, err := strconv.Atoi(ast.SRID)
		if err != nil || srid < 0 {
			return nil, fmt.Errorf("invalid SRID %q", ast.SRID)
		}
		lit.srid = &srid
	}
	shape, ok := parseShapeName(ast.Shape.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown shape %q", ast.Shape.Kind)
	}
	g, err := buildShape(shape, ast.Shape.Body)
	if err != nil {
		return nil, err
	}
	lit.shape = shape
	lit.geometry = g
	return lit, nil
}

// buildShape applies the nesting rules of one shape to a parsed body.
func buildShape(shape Shape, body *listP) (orb.Geometry, error) {
	switch shape {
	case ShapePoint:
		if len(body.Items) != 1 || body.Items[0].Pos == nil {
			return nil, fmt.Errorf("Point needs exactly one position")
		}
		return body.Items[0].Pos.point(), nil

	case ShapeLineString:
		ps, err := body.positions()
		if err != nil {
			return nil, err
		}
		return orb.LineString(ps), nil

	case ShapePolygon:
		return body.polygon()

	case ShapeMultiPoint:
		mp := make(orb.MultiPoint, 0, len(body.Items))
		for _, it := range body.Items {
			switch {
			case it.Pos != nil:
				mp = append(mp, it.Pos.point())
			case it.Group != nil && len(it.Group.Items) == 1 && it.Group.Items[0].Pos != nil:
				mp = append(mp, it.Group.Items[0].Pos.point())
			default:
				return nil, fmt.Errorf("MultiPoint members must be positions")
			}
		}
		return mp, nil

	case ShapeMultiLineString:
		mls := make(orb.MultiLineString, 0, len(body.Items))
		for _, it := range body.Items {
			if it.Group == nil {
				return nil, fmt.Errorf("MultiLineString members must be position lists")
			}
			ps, err := it.Group.positions()
			if err != nil {
				return nil, err
			}
			mls = append(mls, orb.LineString(ps))
		}
		return mls, nil

	case ShapeMultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(body.Items))
		for _, it := range body.Items {
			if it.Group == nil {
				return nil, fmt.Errorf("MultiPolygon members must be polygons")
			}
			p, err := it.Group.polygon()
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil

	case ShapeCollection:
		c := make(orb.Collection, 0, len(body.Items))
		for _, it := range body.Items {
			if it.Shape == nil {
				return nil, fmt.Errorf("Collection members must be shapes")
			}
			member, ok := parseShapeName(it.Shape.Kind)
			if !ok {
				return nil, fmt.Errorf("unknown shape %q", it.Shape.Kind)
			}
			g, err := buildShape(member, it.Shape.Body)
			if err != nil {
				return nil, err
			}
			c = append(c, g)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown shape %v", shape)
}

func (p *positionP) point() orb.Point {
	return orb.Point{p.X, p.Y}
}

func (l *listP) positions() ([]orb.Point, error) {
	ps := make([]orb.Point, 0, len(l.Items))
	for _, it := range l.Items {
		if it.Pos == nil {
			return nil, fmt.Errorf("expected position")
		}
		ps = append(ps, it.Pos.point())
	}
	return ps, nil
}

func (l *listP) polygon() (orb.Polygon, error) {
	p := make(orb.Polygon, 0, len(l.Items))
	for _, it := range l.Items {
		if it.Group == nil {
			return nil, fmt.Errorf("Polygon members must be rings")
		}
		ps, err := it.Group.positions()
		if err != nil {
			return nil, err
		}
		p = append(p, orb.Ring(ps))
	}
	return p, nil
}
