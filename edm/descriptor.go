// Package edm provides the primitive and geospatial type descriptors that
// convert between lexical strings and Go values.
package edm

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/google/uuid"
)

// Descriptor converts values of one EDM type between their lexical form and
// their Go representation. Descriptors hold no mutable state and are safe
// for concurrent use.
type Descriptor interface {
	// Name returns the qualified type name, e.g. "Edm.Int32".
	Name() string
	// Kind returns the value family the descriptor belongs to.
	Kind() Kind
	// ValueOfString parses a lexical string under the given facets.
	ValueOfString(lexical string, f Facets) (any, error)
	// ValueToString formats a Go value under the given facets.
	ValueToString(v any, f Facets) (string, error)
}

// Kind groups descriptors by the family of values they own.
type Kind int

const (
	// KindBoolean is Edm.Boolean.
	KindBoolean Kind = iota
	// KindIntegral covers Edm.Byte, Edm.SByte and Edm.Int16/32/64.
	KindIntegral
	// KindFloating covers Edm.Single and Edm.Double.
	KindFloating
	// KindDecimal is Edm.Decimal.
	KindDecimal
	// KindString is Edm.String.
	KindString
	// KindBinary is Edm.Binary.
	KindBinary
	// KindTemporal covers dates, times and durations.
	KindTemporal
	// KindGuid is Edm.Guid.
	KindGuid
	// KindStream is Edm.Stream.
	KindStream
	// KindGeospatial covers every Geography and Geometry type.
	KindGeospatial
)

var kindNames = [...]string{
	KindBoolean:    "boolean",
	KindIntegral:   "integral",
	KindFloating:   "floating",
	KindDecimal:    "decimal",
	KindString:     "string",
	KindBinary:     "binary",
	KindTemporal:   "temporal",
	KindGuid:       "guid",
	KindStream:     "stream",
	KindGeospatial: "geospatial",
}

// String returns the lower-case family name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsNumeric reports whether values of this kind are written as JSON numbers.
func (k Kind) IsNumeric() bool {
	return k == KindIntegral || k == KindFloating || k == KindDecimal
}

// ParseAs parses lexical with d and converts the canonical Go value to the
// requested representation T. For example an Edm.Int16 lexical may be read
// as int64 and an Edm.Decimal as float64 or string.
func ParseAs[T any](d Descriptor, lexical string, f Facets) (T, error) {
	var zero T
	v, err := d.ValueOfString(lexical, f)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	out, ok := convertTo(v, reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return zero, &UnsupportedValueKindError{TypeName: d.Name(), Value: zero}
	}
	return out.Interface().(T), nil
}

// convertTo converts a canonical value to target, refusing lossy integer
// narrowing.
func convertTo(v any, target reflect.Type) (reflect.Value, bool) {
	switch x := v.(type) {
	case *decimal.Big:
		switch target.Kind() {
		case reflect.String:
			return reflect.ValueOf(formatDecimal(x)).Convert(target), true
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(formatDecimal(x), 64)
			if err != nil {
				return reflect.Value{}, false
			}
			return reflect.ValueOf(f).Convert(target), true
		}
		return reflect.Value{}, false
	case uuid.UUID:
		if target.Kind() == reflect.String {
			return reflect.ValueOf(x.String()).Convert(target), true
		}
		return reflect.Value{}, false
	case time.Time, TimeOfDay:
		return reflect.Value{}, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out := reflect.New(target).Elem()
			if out.OverflowInt(i) {
				return reflect.Value{}, false
			}
			out.SetInt(i)
			return out, true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out := reflect.New(target).Elem()
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, false
			}
			out.SetUint(uint64(i))
			return out, true
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(float64(i)).Convert(target), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out := reflect.New(target).Elem()
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return reflect.Value{}, false
			}
			out.SetInt(int64(u))
			return out, true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out := reflect.New(target).Elem()
			if out.OverflowUint(u) {
				return reflect.Value{}, false
			}
			out.SetUint(u)
			return out, true
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(float64(u)).Convert(target), true
		}
	case reflect.Float32, reflect.Float64:
		if target.Kind() == reflect.Float32 || target.Kind() == reflect.Float64 {
			return rv.Convert(target), true
		}
	case reflect.String:
		if target.Kind() == reflect.String {
			return rv.Convert(target), true
		}
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 && target.Kind() == reflect.String {
			return reflect.ValueOf(string(rv.Bytes())).Convert(target), true
		}
	}
	return reflect.Value{}, false
}

// formatNil handles a nil value passed to ValueToString.
func formatNil(typeName string, f Facets) (string, error) {
	return "", CheckNull(typeName, f)
}
