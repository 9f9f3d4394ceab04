package edm

import (
	"errors"
	"testing"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/google/uuid"
)

func mustLookup(t *testing.T, r *Registry, name string) Descriptor {
	t.Helper()
	d, err := r.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", name, err)
	}
	return d
}

func TestPrimitive_RoundTrip(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typeName string
		lexical  string
	}{
		{"Edm.Boolean", "true"},
		{"Edm.Boolean", "false"},
		{"Edm.Byte", "255"},
		{"Edm.SByte", "-128"},
		{"Edm.Int16", "-32768"},
		{"Edm.Int32", "2147483647"},
		{"Edm.Int64", "-9223372036854775808"},
		{"Edm.Single", "1.5"},
		{"Edm.Single", "1234567.5"},
		{"Edm.Single", "16777216"},
		{"Edm.Single", "0.00001"},
		{"Edm.Single", "1E+21"},
		{"Edm.Double", "3.14"},
		{"Edm.Double", "1234567.5"},
		{"Edm.Double", "1000000"},
		{"Edm.Double", "123456789"},
		{"Edm.Double", "0.00001"},
		{"Edm.Double", "0.000001"},
		{"Edm.Double", "1E+21"},
		{"Edm.Double", "1.5E-7"},
		{"Edm.Double", "-2.5E+300"},
		{"Edm.Double", "INF"},
		{"Edm.Double", "-INF"},
		{"Edm.Double", "NaN"},
		{"Edm.Decimal", "123.450"},
		{"Edm.Decimal", "-42"},
		{"Edm.String", "héllo wörld"},
		{"Edm.String", ""},
		{"Edm.Binary", "AQID"},
		{"Edm.Date", "2024-02-29"},
		{"Edm.DateTimeOffset", "2024-01-15T10:30:00Z"},
		{"Edm.DateTimeOffset", "2024-01-15T10:30:00.123+02:00"},
		{"Edm.TimeOfDay", "13:20:05"},
		{"Edm.TimeOfDay", "13:20:05.5"},
		{"Edm.Duration", "P1DT2H3M4.5S"},
		{"Edm.Duration", "PT0S"},
		{"Edm.Duration", "-PT1H"},
		{"Edm.Guid", "01234567-89ab-cdef-0123-456789abcdef"},
		{"Edm.GeographyPoint", "geography'SRID=4326;Point(1 2)'"},
		{"Edm.GeometryLineString", "geometry'SRID=0;LineString(0 0,1.5 -2)'"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName+"/"+tt.lexical, func(t *testing.T) {
			d := mustLookup(t, r, tt.typeName)
			v, err := d.ValueOfString(tt.lexical, NoFacets())
			if err != nil {
				t.Fatalf("ValueOfString: %v", err)
			}
			got, err := d.ValueToString(v, NoFacets())
			if err != nil {
				t.Fatalf("ValueToString: %v", err)
			}
			if got != tt.lexical {
				t.Errorf("got %q, want %q", got, tt.lexical)
			}
		})
	}
}

func TestPrimitive_GoRepresentation(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typeName string
		lexical  string
		check    func(any) bool
	}{
		{"Edm.Byte", "7", func(v any) bool { return v == uint8(7) }},
		{"Edm.SByte", "-7", func(v any) bool { return v == int8(-7) }},
		{"Edm.Int16", "7", func(v any) bool { return v == int16(7) }},
		{"Edm.Int32", "7", func(v any) bool { return v == int32(7) }},
		{"Edm.Int64", "7", func(v any) bool { return v == int64(7) }},
		{"Edm.Single", "7", func(v any) bool { return v == float32(7) }},
		{"Edm.Double", "7", func(v any) bool { return v == float64(7) }},
		{"Edm.Duration", "PT1M", func(v any) bool { return v == time.Minute }},
		{"Edm.TimeOfDay", "01:02", func(v any) bool { return v == TimeOfDay{Hour: 1, Minute: 2} }},
		{"Edm.Guid", "01234567-89AB-CDEF-0123-456789ABCDEF", func(v any) bool {
			return v == uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
		}},
		{"Edm.Decimal", "1.50", func(v any) bool {
			x, ok := v.(*decimal.Big)
			return ok && x.Cmp(decimal.New(15, 1)) == 0
		}},
		{"Edm.Date", "2024-02-29", func(v any) bool {
			return v.(time.Time).Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			v, err := mustLookup(t, r, tt.typeName).ValueOfString(tt.lexical, NoFacets())
			if err != nil {
				t.Fatalf("ValueOfString: %v", err)
			}
			if !tt.check(v) {
				t.Errorf("unexpected value %#v (%T)", v, v)
			}
		})
	}
}

func TestPrimitive_CanonicalForm(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typeName string
		lexical  string
		want     string
	}{
		{"Edm.Binary", "AQID/w==", "AQID_w"},
		{"Edm.Guid", "01234567-89AB-CDEF-0123-456789ABCDEF", "01234567-89ab-cdef-0123-456789abcdef"},
		{"Edm.TimeOfDay", "07:05", "07:05:00"},
		{"Edm.DateTimeOffset", "2024-01-15T10:30Z", "2024-01-15T10:30:00Z"},
		{"Edm.Duration", "PT90M", "PT1H30M"},
		{"Edm.Int32", "+15", "15"},
		{"Edm.Double", "1e6", "1000000"},
		{"Edm.Double", "1.0E-07", "1E-7"},
		{"Edm.Double", "12.50", "12.5"},
		{"Edm.GeographyPoint", "Point(1 2)", "geography'SRID=4326;Point(1 2)'"},
		{"Edm.GeometryPoint", "srid=7;point( 1  2 )", "geometry'SRID=7;Point(1 2)'"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			d := mustLookup(t, r, tt.typeName)
			v, err := d.ValueOfString(tt.lexical, NoFacets())
			if err != nil {
				t.Fatalf("ValueOfString(%q): %v", tt.lexical, err)
			}
			got, err := d.ValueToString(v, NoFacets())
			if err != nil {
				t.Fatalf("ValueToString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrimitive_InvalidLexical(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typeName string
		lexical  string
	}{
		{"Edm.Boolean", "TRUE"},
		{"Edm.Boolean", "1"},
		{"Edm.Byte", "256"},
		{"Edm.Byte", "-1"},
		{"Edm.Int32", "2147483648"},
		{"Edm.Int32", "12a"},
		{"Edm.Double", "1,5"},
		{"Edm.Double", "Infinity"},
		{"Edm.Decimal", "1e5"},
		{"Edm.Decimal", "1."},
		{"Edm.Binary", "!!!"},
		{"Edm.Date", "2023-02-29"},
		{"Edm.DateTimeOffset", "2024-01-15 10:30:00Z"},
		{"Edm.DateTimeOffset", "2024-01-15T10:30:00"},
		{"Edm.TimeOfDay", "24:00:00"},
		{"Edm.Duration", "P"},
		{"Edm.Duration", "PT"},
		{"Edm.Duration", "1H"},
		{"Edm.Guid", "not-a-guid"},
		{"Edm.GeographyPoint", "Point(1)"},
		{"Edm.GeographyPoint", "LineString(0 0,1 1)"},
		{"Edm.GeographyPoint", "geometry'Point(1 2)'"},
		{"Edm.GeographyPoint", "geography'Point(1 2)"},
		{"Edm.GeographyPolygon", "Polygon(0 0,1 1)"},
		{"Edm.GeographyCollection", "Collection((1 2))"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName+"/"+tt.lexical, func(t *testing.T) {
			_, err := mustLookup(t, r, tt.typeName).ValueOfString(tt.lexical, NoFacets())
			var lexErr *InvalidLexicalFormError
			if !errors.As(err, &lexErr) {
				t.Fatalf("got %v, want InvalidLexicalFormError", err)
			}
			if lexErr.TypeName != tt.typeName {
				t.Errorf("TypeName: got %q, want %q", lexErr.TypeName, tt.typeName)
			}
		})
	}
}

func TestPrimitive_UnsupportedValueKind(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typeName string
		value    any
	}{
		{"Edm.Boolean", "true"},
		{"Edm.Int16", int64(40000)},
		{"Edm.Byte", -1},
		{"Edm.Int64", uint64(1 << 63)},
		{"Edm.Int32", "1"},
		{"Edm.Double", "1.5"},
		{"Edm.String", 42},
		{"Edm.Binary", "AQID"},
		{"Edm.Date", "2024-01-01"},
		{"Edm.Duration", int64(5)},
		{"Edm.Guid", "01234567-89ab-cdef-0123-456789abcdef"},
		{"Edm.GeographyPoint", NewGeometry(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			_, err := mustLookup(t, r, tt.typeName).ValueToString(tt.value, NoFacets())
			var kindErr *UnsupportedValueKindError
			if !errors.As(err, &kindErr) {
				t.Fatalf("got %v, want UnsupportedValueKindError", err)
			}
		})
	}
}

func TestPrimitive_Widening(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typeName string
		value    any
		want     string
	}{
		{"Edm.Int64", 12, "12"},
		{"Edm.Int32", uint16(12), "12"},
		{"Edm.Double", int32(3), "3"},
		{"Edm.Single", float32(0.25), "0.25"},
		{"Edm.Decimal", 17, "17"},
		{"Edm.Decimal", 2.5, "2.5"},
		{"Edm.TimeOfDay", time.Date(2024, 1, 1, 8, 9, 10, 0, time.UTC), "08:09:10"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			got, err := mustLookup(t, r, tt.typeName).ValueToString(tt.value, NoFacets())
			if err != nil {
				t.Fatalf("ValueToString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStream_NotImplemented(t *testing.T) {
	d := mustLookup(t, NewRegistry(), "Edm.Stream")
	var nie *NotImplementedError
	if _, err := d.ValueOfString("x", NoFacets()); !errors.As(err, &nie) {
		t.Errorf("ValueOfString: got %v, want NotImplementedError", err)
	}
	if _, err := d.ValueToString([]byte("x"), NoFacets()); !errors.As(err, &nie) {
		t.Errorf("ValueToString: got %v, want NotImplementedError", err)
	}
}

func TestParseAs(t *testing.T) {
	r := NewRegistry()

	i, err := ParseAs[int64](mustLookup(t, r, "Edm.Int16"), "123", NoFacets())
	if err != nil || i != 123 {
		t.Errorf("int64 from Int16: got %d, %v", i, err)
	}

	b, err := ParseAs[uint8](mustLookup(t, r, "Edm.Int32"), "200", NoFacets())
	if err != nil || b != 200 {
		t.Errorf("uint8 from Int32: got %d, %v", b, err)
	}

	s, err := ParseAs[string](mustLookup(t, r, "Edm.Decimal"), "1.50", NoFacets())
	if err != nil || s != "1.50" {
		t.Errorf("string from Decimal: got %q, %v", s, err)
	}

	f, err := ParseAs[float64](mustLookup(t, r, "Edm.Decimal"), "2.5", NoFacets())
	if err != nil || f != 2.5 {
		t.Errorf("float64 from Decimal: got %v, %v", f, err)
	}

	g, err := ParseAs[string](mustLookup(t, r, "Edm.Guid"), "01234567-89ab-cdef-0123-456789abcdef", NoFacets())
	if err != nil || g != "01234567-89ab-cdef-0123-456789abcdef" {
		t.Errorf("string from Guid: got %q, %v", g, err)
	}

	var kindErr *UnsupportedValueKindError
	if _, err := ParseAs[int8](mustLookup(t, r, "Edm.Int32"), "300", NoFacets()); !errors.As(err, &kindErr) {
		t.Errorf("int8 overflow: got %v, want UnsupportedValueKindError", err)
	}
	if _, err := ParseAs[int](mustLookup(t, r, "Edm.Date"), "2024-01-01", NoFacets()); !errors.As(err, &kindErr) {
		t.Errorf("int from Date: got %v, want UnsupportedValueKindError", err)
	}

	var lexErr *InvalidLexicalFormError
	if _, err := ParseAs[int64](mustLookup(t, r, "Edm.Int16"), "x", NoFacets()); !errors.As(err, &lexErr) {
		t.Errorf("bad lexical: got %v, want InvalidLexicalFormError", err)
	}
}

func TestDescriptor_Kind(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		want Kind
	}{
		{"Edm.Boolean", KindBoolean},
		{"Edm.Byte", KindIntegral},
		{"Edm.Int64", KindIntegral},
		{"Edm.Single", KindFloating},
		{"Edm.Decimal", KindDecimal},
		{"Edm.String", KindString},
		{"Edm.Binary", KindBinary},
		{"Edm.Date", KindTemporal},
		{"Edm.Duration", KindTemporal},
		{"Edm.Guid", KindGuid},
		{"Edm.Stream", KindStream},
		{"Edm.GeographyPoint", KindGeospatial},
		{"Edm.Geometry", KindGeospatial},
	}
	for _, tt := range tests {
		if got := mustLookup(t, r, tt.name).Kind(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if !KindDecimal.IsNumeric() || KindString.IsNumeric() {
		t.Error("IsNumeric: wrong classification")
	}
	if KindTemporal.String() != "temporal" || Kind(99).String() != "unknown" {
		t.Errorf("String: got %q, %q", KindTemporal.String(), Kind(99).String())
	}
}

func TestPrimitive_EmptyLexical(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.Names() {
		d := mustLookup(t, r, name)
		switch d.(type) {
		case stringType, streamType, geoAnyDescriptor:
			continue
		}
		t.Run(name, func(t *testing.T) {
			for _, f := range []Facets{NoFacets(), NoFacets().WithNullable(true)} {
				v, err := d.ValueOfString("", f)
				if err != nil || v != nil {
					t.Errorf("nullable: got %v, %v, want nil, nil", v, err)
				}
			}
			_, err := d.ValueOfString("", NoFacets().WithNullable(false))
			var fv *FacetViolationError
			if !errors.As(err, &fv) || fv.Facet != "nullable" {
				t.Errorf("non-nullable: got %v, want nullable FacetViolationError", err)
			}
		})
	}

	s, err := mustLookup(t, r, "Edm.String").ValueOfString("", NoFacets().WithNullable(false))
	if err != nil || s != "" {
		t.Errorf("Edm.String: got %v, %v, want empty string", s, err)
	}
}
