package edm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

// MarshalGeoJSON encodes g as a GeoJSON geometry object. The SRID travels in
// a named crs member ("EPSG:4326"), as the JSON wire format requires.
func (g Geospatial) MarshalGeoJSON() ([]byte, error) {
	if _, ok := ShapeOf(g.Shape); !ok {
		return nil, &UnsupportedValueKindError{TypeName: EdmNamespace + "." + g.Dimension.String(), Value: g.Shape}
	}
	raw, err := geojson.NewGeometry(g.Shape).MarshalJSON()
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	obj["crs"] = map[string]any{
		"type": "name",
		"properties": map[string]any{
			"name": "EPSG:" + strconv.Itoa(g.SRID),
		},
	}
	return json.Marshal(obj)
}

// MarshalJSON implements json.Marshaler using the GeoJSON form.
func (g Geospatial) MarshalJSON() ([]byte, error) {
	return g.MarshalGeoJSON()
}

// ParseGeoJSON decodes a GeoJSON geometry object into a value of the given
// dimension. Without a crs member the dimension's default SRID applies.
func ParseGeoJSON(dim Dimension, raw []byte) (Geospatial, error) {
	gj, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return Geospatial{}, err
	}
	shape := gj.Geometry()
	if _, ok := ShapeOf(shape); !ok {
		return Geospatial{}, fmt.Errorf("unsupported GeoJSON type %q", gj.Type)
	}
	srid := dim.DefaultSRID()
	if name := gjson.GetBytes(raw, "crs.properties.name"); name.Exists() {
		code := name.String()
		if i := strings.LastIndexByte(code, ':'); i >= 0 {
			code = code[i+1:]
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			return Geospatial{}, fmt.Errorf("invalid crs name %q", name.String())
		}
		srid = n
	}
	return Geospatial{Dimension: dim, SRID: srid, Shape: shape}, nil
}
