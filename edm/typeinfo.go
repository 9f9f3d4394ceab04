package edm

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// FullQualifiedName is a namespace-qualified type name.
type FullQualifiedName struct {
	Namespace string
	Name      string
}

// NewFQN splits "NS.Sub.Name" at the last dot.
func NewFQN(qualified string) FullQualifiedName {
	i := strings.LastIndexByte(qualified, '.')
	if i < 0 {
		return FullQualifiedName{Name: qualified}
	}
	return FullQualifiedName{Namespace: qualified[:i], Name: qualified[i+1:]}
}

// String returns "Namespace.Name".
func (n FullQualifiedName) String() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// TypeInfo is a declared type string broken into its qualified name and
// collection flag.
type TypeInfo struct {
	FQN        FullQualifiedName
	Collection bool
}

// IsPrimitive reports whether the type lives in the Edm namespace.
func (t TypeInfo) IsPrimitive() bool {
	return t.FQN.Namespace == EdmNamespace
}

// String returns the declared form, e.g. "Collection(NS.Order)".
func (t TypeInfo) String() string {
	if t.Collection {
		return "Collection(" + t.FQN.String() + ")"
	}
	return t.FQN.String()
}

// typeExprP parses: Collection(Qualified.Name) | Qualified.Name
type typeExprP struct {
	Collection *qualifiedNameP `parser:"  'Collection' '(' @@ ')'"`
	Single     *qualifiedNameP `parser:"| @@"`
}

// qualifiedNameP parses: Ident ('.' Ident)*
type qualifiedNameP struct {
	Parts []string `parser:"@Ident ( '.' @Ident )*"`
}

var typeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[().]`},
})

var typeParser = participle.MustBuild[typeExprP](
	participle.Lexer(typeLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParseTypeInfo parses a declared type string such as "NS.Customer" or
// "Collection(NS.Order)". A leading '#', as used in payload annotations,
// is ignored.
func ParseTypeInfo(s string) (TypeInfo, error) {
	ast, err := typeParser.ParseString("", strings.TrimPrefix(s, "#"))
	if err != nil {
		return TypeInfo{}, fmt.Errorf("parse type %q: %w", s, err)
	}
	if ast.Collection != nil {
		return TypeInfo{FQN: ast.Collection.fqn(), Collection: true}, nil
	}
	return TypeInfo{FQN: ast.Single.fqn()}, nil
}

// NormalizeTypeName expands the short primitive names used in payload
// annotations ("Int32", "#Collection(String)") to qualified form
// ("Edm.Int32", "Collection(Edm.String)"). Other names pass through with a
// leading '#' removed.
func NormalizeTypeName(s string) string {
	s = strings.TrimPrefix(s, "#")
	if s == "" {
		return s
	}
	ti, err := ParseTypeInfo(s)
	if err != nil {
		return s
	}
	if ti.FQN.Namespace == "" {
		ti.FQN.Namespace = EdmNamespace
	}
	return ti.String()
}

func (q *qualifiedNameP) fqn() FullQualifiedName {
	if len(q.Parts) == 1 {
		return FullQualifiedName{Name: q.Parts[0]}
	}
	last := len(q.Parts) - 1
	return FullQualifiedName{Namespace: strings.Join(q.Parts[:last], "."), Name: q.Parts[last]}
}
