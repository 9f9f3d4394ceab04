// Package serde turns OData payloads into the data object model. The
// Deserializer picks the reader for the declared wire format, runs it and
// wraps the result; every failure comes back as a DeserializationError.
//
// Geospatial values are read from their literal text form in XML payloads
// and from GeoJSON in JSON payloads. GML encoded values are rejected.
package serde

import (
	"fmt"
	"io"
	"strings"

	"github.com/CaliLuke/go-odata/data"
	"github.com/CaliLuke/go-odata/edm"
)

// Target names reported in DeserializationError.
const (
	TargetEntitySet = "data.EntitySet"
	TargetEntity    = "data.Entity"
	TargetProperty  = "data.Property"
	TargetError     = "data.Error"
)

// Deserializer dispatches payloads to format readers. It holds no mutable
// state after construction and is safe for concurrent use.
type Deserializer struct {
	registry       *edm.Registry
	model          edm.Model
	maxBytes       int64
	validateErrors bool
}

// Option configures a Deserializer.
type Option func(*Deserializer)

// WithMaxBytes rejects inputs larger than n bytes. Zero means no limit.
func WithMaxBytes(n int64) Option {
	return func(d *Deserializer) {
		d.maxBytes = n
	}
}

// WithErrorSchema toggles validation of JSON error bodies against the
// error document schema. It is enabled by default.
func WithErrorSchema(enabled bool) Option {
	return func(d *Deserializer) {
		d.validateErrors = enabled
	}
}

// NewDeserializer returns a Deserializer converting leaf values through reg
// and typing undeclared values from model. A nil reg gets a fresh registry;
// a nil model disables model-driven typing.
func NewDeserializer(reg *edm.Registry, model edm.Model, opts ...Option) *Deserializer {
	if reg == nil {
		reg = edm.NewRegistry()
	}
	d := &Deserializer{
		registry:       reg,
		model:          model,
		validateErrors: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the descriptor registry used for leaf values.
func (d *Deserializer) Registry() *edm.Registry {
	return d.registry
}

// ToEntitySet decodes an entity collection document.
func (d *Deserializer) ToEntitySet(r io.Reader, f PubFormat) (*data.ResWrap[*data.EntitySet], error) {
	switch f {
	case PubFormatAtom:
		return decode(d, r, TargetEntitySet, f.String(), readAtomEntitySet)
	case PubFormatJSON:
		return decode(d, r, TargetEntitySet, f.String(), readJSONEntitySet)
	}
	return nil, unknownFormat(TargetEntitySet, f)
}

// ToEntity decodes a single entity document.
func (d *Deserializer) ToEntity(r io.Reader, f PubFormat) (*data.ResWrap[*data.Entity], error) {
	switch f {
	case PubFormatAtom:
		return decode(d, r, TargetEntity, f.String(), readAtomEntity)
	case PubFormatJSON:
		return decode(d, r, TargetEntity, f.String(), readJSONEntity)
	}
	return nil, unknownFormat(TargetEntity, f)
}

// ToProperty decodes a single property document.
func (d *Deserializer) ToProperty(r io.Reader, f Format) (*data.ResWrap[*data.Property], error) {
	switch f {
	case FormatXML:
		return decode(d, r, TargetProperty, f.String(), readXMLProperty)
	case FormatJSON:
		return decode(d, r, TargetProperty, f.String(), readJSONProperty)
	}
	return nil, unknownFormat(TargetProperty, f)
}

// ToError decodes a service error document and returns the error payload
// alone; errors are never wrapped in a ResWrap for the caller.
func (d *Deserializer) ToError(r io.Reader, isXML bool) (*data.Error, error) {
	var (
		res *data.ResWrap[*data.Error]
		err error
	)
	if isXML {
		res, err = decode(d, r, TargetError, "xml", readXMLError)
	} else {
		res, err = decode(d, r, TargetError, "json", readJSONError)
	}
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// readFunc is a format reader for one target kind.
type readFunc[T any] func(d *Deserializer, buf []byte) (*data.ResWrap[T], error)

// decode runs one reader and maps whatever it reports, including panics,
// to a DeserializationError.
func decode[T any](d *Deserializer, r io.Reader, target, format string, read readFunc[T]) (res *data.ResWrap[T], err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = &DeserializationError{Target: target, Cause: fmt.Errorf("reader panic: %v", p)}
		}
		if err != nil {
			log.Debugf("decode %s (%s) failed: %v", target, format, err)
		}
	}()

	buf, err := d.readAll(r)
	if err != nil {
		return nil, &DeserializationError{Target: target, Cause: err}
	}
	log.Tracef("decode %s (%s): %d bytes", target, format, len(buf))

	res, err = read(d, buf)
	if err != nil {
		return nil, &DeserializationError{Target: target, Cause: err}
	}
	return res, nil
}

func (d *Deserializer) readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrMalformed)
	}
	if d.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	buf, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > d.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, d.maxBytes)
	}
	return buf, nil
}

func unknownFormat(target string, f any) error {
	err := &DeserializationError{Target: target, Cause: fmt.Errorf("%w: %v", ErrUnknownFormat, f)}
	log.Debugf("%v", err)
	return err
}

// --- shared leaf conversion ---

// primitive converts a lexical value through the registry.
func (d *Deserializer) primitive(typeName string, facets edm.Facets, lexical string) (data.Value, error) {
	desc, err := d.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	v, err := desc.ValueOfString(lexical, facets)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return data.Null{Type: desc.Name()}, nil
	}
	return data.Primitive{Type: desc.Name(), Value: v}, nil
}

// declared returns the structural property lookup of an entity or complex
// type known to the model, or nil.
func (d *Deserializer) declared(typeName string) func(string) (edm.Property, bool) {
	if d.model == nil || typeName == "" {
		return nil
	}
	fqn := edm.NewFQN(strings.TrimPrefix(typeName, "#"))
	if et, ok := d.model.EntityType(fqn); ok {
		return et.Property
	}
	if ct, ok := d.model.ComplexType(fqn); ok {
		return ct.Property
	}
	return nil
}

// navigation returns a resolver for the navigation property name of entity
// type typeName. It reports false when the model does not declare one.
func (d *Deserializer) navigation(typeName, name string) (*edm.NavigationResolver, bool, error) {
	if d.model == nil || typeName == "" {
		return nil, false, nil
	}
	et, ok := d.model.EntityType(edm.NewFQN(typeName))
	if !ok {
		return nil, false, nil
	}
	np, ok := et.NavigationProperty(name)
	if !ok {
		return nil, false, nil
	}
	r, err := edm.NewNavigationResolver(np)
	if err != nil {
		return nil, false, fmt.Errorf("navigation property %s.%s: %w", typeName, name, err)
	}
	return r, true, nil
}

// entityTypeHint returns name when the model declares it as an entity type.
func (d *Deserializer) entityTypeHint(name string) string {
	if d.model == nil || name == "" {
		return ""
	}
	if _, ok := d.model.EntityType(edm.NewFQN(name)); !ok {
		return ""
	}
	return name
}

// valueType returns the type name carried by a decoded value.
func valueType(v data.Value) string {
	switch x := v.(type) {
	case data.Primitive:
		return x.Type
	case data.Complex:
		return x.Type
	case data.Collection:
		return x.Type
	case data.Null:
		return x.Type
	}
	return ""
}
