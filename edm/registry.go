package edm

import (
	"math"
	"reflect"
	"sort"
	"strings"
)

// EdmNamespace is the namespace of all primitive types.
const EdmNamespace = "Edm"

// Registry maps qualified EDM type names to descriptors. It is filled once by
// NewRegistry and never written afterwards, so it needs no locking and may
// be shared by any number of goroutines.
type Registry struct {
	byName map[string]Descriptor
	geo    map[Dimension]map[Shape]Descriptor
}

// NewRegistry builds the table of primitive and geospatial descriptors.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Descriptor),
		geo:    make(map[Dimension]map[Shape]Descriptor),
	}
	for _, d := range []Descriptor{
		booleanType{},
		integerType{name: "Edm.Byte", min: 0, max: math.MaxUint8, kind: reflect.Uint8},
		integerType{name: "Edm.SByte", min: math.MinInt8, max: math.MaxInt8, kind: reflect.Int8},
		integerType{name: "Edm.Int16", min: math.MinInt16, max: math.MaxInt16, kind: reflect.Int16},
		integerType{name: "Edm.Int32", min: math.MinInt32, max: math.MaxInt32, kind: reflect.Int32},
		integerType{name: "Edm.Int64", min: math.MinInt64, max: math.MaxInt64, kind: reflect.Int64},
		floatType{name: "Edm.Single", bits: 32},
		floatType{name: "Edm.Double", bits: 64},
		decimalType{},
		stringType{},
		binaryType{},
		dateType{},
		dateTimeOffsetType{},
		timeOfDayType{},
		durationType{},
		guidType{},
		streamType{},
	} {
		r.byName[d.Name()] = d
	}

	for _, dim := range []Dimension{Geography, Geometry} {
		shapes := make(map[Shape]Descriptor, len(allShapes))
		for _, s := range allShapes {
			d := geoDescriptor{dim: dim, shape: s}
			shapes[s] = d
			r.byName[d.Name()] = d
		}
		r.geo[dim] = shapes
		general := geoAnyDescriptor{dim: dim, shapes: shapes}
		r.byName[general.Name()] = general
	}
	return r
}

// Lookup returns the descriptor registered under name. Both qualified
// ("Edm.Int32") and unqualified ("Int32") primitive names are accepted.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	if d, ok := r.byName[name]; ok {
		return d, nil
	}
	if !strings.Contains(name, ".") {
		if d, ok := r.byName[EdmNamespace+"."+name]; ok {
			return d, nil
		}
	}
	return nil, &UnknownTypeError{TypeName: name}
}

// Geo returns the shape-specific descriptor for a dimension and shape.
func (r *Registry) Geo(dim Dimension, shape Shape) (Descriptor, bool) {
	d, ok := r.geo[dim][shape]
	return d, ok
}

// Names returns all registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
