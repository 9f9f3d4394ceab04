package serde

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/CaliLuke/go-odata/data"
	"github.com/CaliLuke/go-odata/edm"
)

// Control information names, without the leading '@'.
const (
	annContext        = "odata.context"
	annType           = "odata.type"
	annID             = "odata.id"
	annETag           = "odata.etag"
	annEditLink       = "odata.editLink"
	annCount          = "odata.count"
	annNextLink       = "odata.nextLink"
	annNavigationLink = "odata.navigationLink"
)

// jsonMember is one property member of a JSON object.
type jsonMember struct {
	name  string
	value gjson.Result
}

// jsonObject is a JSON object split into instance annotations, property
// annotations and properties. Member order is kept.
type jsonObject struct {
	annotations     map[string]gjson.Result
	annotationOrder []string
	propAnnotations map[string]map[string]gjson.Result
	propAnnOrder    []string
	props           []jsonMember
}

func splitJSONObject(obj gjson.Result) *jsonObject {
	o := &jsonObject{
		annotations:     make(map[string]gjson.Result),
		propAnnotations: make(map[string]map[string]gjson.Result),
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		switch {
		case strings.HasPrefix(key, "@"):
			o.addAnnotation(key[1:], v)
		case strings.HasPrefix(key, "odata."):
			o.addAnnotation(key, v)
		case strings.Contains(key, "@"):
			prop, term, _ := strings.Cut(key, "@")
			anns, ok := o.propAnnotations[prop]
			if !ok {
				anns = make(map[string]gjson.Result)
				o.propAnnotations[prop] = anns
				o.propAnnOrder = append(o.propAnnOrder, prop)
			}
			anns[term] = v
		default:
			o.props = append(o.props, jsonMember{name: key, value: v})
		}
		return true
	})
	return o
}

func (o *jsonObject) addAnnotation(term string, v gjson.Result) {
	if _, ok := o.annotations[term]; !ok {
		o.annotationOrder = append(o.annotationOrder, term)
	}
	o.annotations[term] = v
}

func (o *jsonObject) annotation(term string) (string, bool) {
	v, ok := o.annotations[term]
	if !ok {
		return "", false
	}
	return v.String(), true
}

func (o *jsonObject) member(name string) (gjson.Result, bool) {
	for _, m := range o.props {
		if m.name == name {
			return m.value, true
		}
	}
	return gjson.Result{}, false
}

// envelope extracts the context URL and the payload-level metadata. The
// consumed terms are left out of the metadata map. Both results are nil
// when the object carried nothing.
func (o *jsonObject) envelope(consumed ...string) (*url.URL, map[string]any, error) {
	var (
		ctx *url.URL
		md  map[string]any
	)
	for _, term := range o.annotationOrder {
		v := o.annotations[term]
		if term == annContext {
			u, err := url.Parse(v.String())
			if err != nil {
				return nil, nil, fmt.Errorf("%w: invalid context URL: %v", ErrMalformed, err)
			}
			ctx = u
			continue
		}
		if contains(consumed, term) {
			continue
		}
		if md == nil {
			md = make(map[string]any)
		}
		md["@"+term] = v.Value()
	}
	return ctx, md, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func parseJSONObject(buf []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(buf) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(buf)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: top-level JSON value is not an object", ErrMalformed)
	}
	return root, nil
}

// --- readers ---

func readJSONEntity(d *Deserializer, buf []byte) (*data.ResWrap[*data.Entity], error) {
	root, err := parseJSONObject(buf)
	if err != nil {
		return nil, err
	}
	obj := splitJSONObject(root)
	ctx, md, err := obj.envelope(annType, annID, annETag, annEditLink)
	if err != nil {
		return nil, err
	}
	e, err := d.jsonEntity(obj, d.entityTypeHint(contextEntityType(ctx)))
	if err != nil {
		return nil, err
	}
	return data.NewResWrap(ctx, md, e), nil
}

func readJSONEntitySet(d *Deserializer, buf []byte) (*data.ResWrap[*data.EntitySet], error) {
	root, err := parseJSONObject(buf)
	if err != nil {
		return nil, err
	}
	obj := splitJSONObject(root)
	ctx, md, err := obj.envelope(annCount, annNextLink)
	if err != nil {
		return nil, err
	}
	set, err := d.jsonEntitySet(obj, d.entityTypeHint(contextEntityType(ctx)))
	if err != nil {
		return nil, err
	}
	return data.NewResWrap(ctx, md, set), nil
}

func readJSONProperty(d *Deserializer, buf []byte) (*data.ResWrap[*data.Property], error) {
	root, err := parseJSONObject(buf)
	if err != nil {
		return nil, err
	}
	obj := splitJSONObject(root)
	ctx, md, err := obj.envelope(annType)
	if err != nil {
		return nil, err
	}

	var fragment string
	if ctx != nil {
		fragment = ctx.Fragment
	}
	prop := &data.Property{Name: contextPropertyName(fragment)}
	typeName := ""
	if t, ok := obj.annotation(annType); ok {
		typeName = edm.NormalizeTypeName(t)
	}

	if v, ok := obj.member("value"); ok && len(obj.props) == 1 {
		if t, ok := obj.propAnnotations["value"][annType]; ok {
			typeName = edm.NormalizeTypeName(t.String())
		}
		if typeName == "" {
			typeName = contextTypeName(fragment)
		}
		val, err := d.jsonValue(typeName, edm.Facets{}, v)
		if err != nil {
			return nil, err
		}
		prop.Value = val
	} else {
		if typeName == "" {
			typeName = contextTypeName(fragment)
		}
		val, err := d.jsonComplex(typeName, obj)
		if err != nil {
			return nil, err
		}
		prop.Value = val
	}
	prop.Type = valueType(prop.Value)
	return data.NewResWrap(ctx, md, prop), nil
}

// contextTypeName returns the type named by a context fragment such as
// "Edm.String" or "Collection(NS.Address)", or empty when the fragment names
// something else.
func contextTypeName(fragment string) string {
	if fragment == "" || strings.ContainsAny(fragment, "/'$") {
		return ""
	}
	ti, err := edm.ParseTypeInfo(fragment)
	if err != nil || ti.FQN.Namespace == "" {
		return ""
	}
	return ti.String()
}

// contextEntityType returns the entity type named by an entity or entity
// collection context such as "NS.Customer/$entity" or "Collection(NS.Customer)".
func contextEntityType(ctx *url.URL) string {
	if ctx == nil {
		return ""
	}
	name := contextTypeName(strings.TrimSuffix(ctx.Fragment, "/$entity"))
	if name == "" {
		return ""
	}
	ti, err := edm.ParseTypeInfo(name)
	if err != nil {
		return ""
	}
	return ti.FQN.String()
}

// contextPropertyName returns the last path segment of a context fragment
// such as "People('1')/Name".
func contextPropertyName(fragment string) string {
	i := strings.LastIndexByte(fragment, '/')
	if i < 0 {
		return ""
	}
	name := fragment[i+1:]
	if name == "" || strings.ContainsAny(name, "$()'") {
		return ""
	}
	return name
}

// --- entities ---

// jsonEntity reads one entity. typeHint types the entity when it carries no
// @odata.type of its own.
func (d *Deserializer) jsonEntity(obj *jsonObject, typeHint string) (*data.Entity, error) {
	e := &data.Entity{Type: typeHint}
	if t, ok := obj.annotation(annType); ok {
		e.Type = edm.NormalizeTypeName(t)
	}
	e.ID, _ = obj.annotation(annID)
	e.ETag, _ = obj.annotation(annETag)
	e.EditLink, _ = obj.annotation(annEditLink)

	declared := d.declared(e.Type)
	for _, m := range obj.props {
		anns := obj.propAnnotations[m.name]
		nav, ok, err := d.navigation(e.Type, m.name)
		if err != nil {
			return nil, err
		}
		if ok {
			link, err := d.jsonInlineLink(nav, m.value, anns)
			if err != nil {
				return nil, fmt.Errorf("navigation property %s: %w", m.name, err)
			}
			e.NavigationLinks = append(e.NavigationLinks, link)
			continue
		}
		p, err := d.jsonProperty(m.name, m.value, anns, declared)
		if err != nil {
			return nil, err
		}
		e.Properties = append(e.Properties, p)
	}

	for _, name := range obj.propAnnOrder {
		href, ok := obj.propAnnotations[name][annNavigationLink]
		if !ok {
			continue
		}
		if l, exists := e.Link(name); exists {
			l.Href = href.String()
			continue
		}
		e.NavigationLinks = append(e.NavigationLinks, &data.Link{Name: name, Href: href.String()})
	}
	return e, nil
}

func (d *Deserializer) jsonEntitySet(obj *jsonObject, typeHint string) (*data.EntitySet, error) {
	set := &data.EntitySet{}
	if c, ok := obj.annotations[annCount]; ok {
		n, err := jsonInt(c)
		if err != nil {
			return nil, fmt.Errorf("%w: @%s: %v", ErrMalformed, annCount, err)
		}
		set.Count = &n
	}
	if next, ok := obj.annotation(annNextLink); ok {
		u, err := url.Parse(next)
		if err != nil {
			return nil, fmt.Errorf("%w: @%s: %v", ErrMalformed, annNextLink, err)
		}
		set.NextLink = u
	}
	value, ok := obj.member("value")
	if !ok || !value.IsArray() {
		return nil, fmt.Errorf("%w: entity collection needs a value array", ErrUnexpectedElement)
	}
	for i, item := range value.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: value[%d] is not an object", ErrUnexpectedElement, i)
		}
		e, err := d.jsonEntity(splitJSONObject(item), typeHint)
		if err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
		set.Entities = append(set.Entities, e)
	}
	return set, nil
}

// jsonInlineLink reads an expanded navigation property. The JSON shape must
// match the declared cardinality and inline entities default to the target
// type.
func (d *Deserializer) jsonInlineLink(nav *edm.NavigationResolver, v gjson.Result, anns map[string]gjson.Result) (*data.Link, error) {
	link := &data.Link{Name: nav.Name()}
	if href, ok := anns[annNavigationLink]; ok {
		link.Href = href.String()
	}
	target := nav.TargetType().String()
	switch {
	case v.Type == gjson.Null:
	case v.IsObject():
		if nav.IsCollection() {
			return nil, fmt.Errorf("%w: object for collection-valued navigation %s", ErrUnexpectedElement, target)
		}
		e, err := d.jsonEntity(splitJSONObject(v), target)
		if err != nil {
			return nil, err
		}
		link.InlineOne = e
	case v.IsArray():
		if !nav.IsCollection() {
			return nil, fmt.Errorf("%w: array for single-valued navigation %s", ErrUnexpectedElement, target)
		}
		set := &data.EntitySet{}
		for i, item := range v.Array() {
			if !item.IsObject() {
				return nil, fmt.Errorf("%w: [%d] is not an object", ErrUnexpectedElement, i)
			}
			e, err := d.jsonEntity(splitJSONObject(item), target)
			if err != nil {
				return nil, err
			}
			set.Entities = append(set.Entities, e)
		}
		link.InlineMany = set
	default:
		return nil, fmt.Errorf("%w: expanded navigation value must be an object or array", ErrUnexpectedElement)
	}
	return link, nil
}

// --- values ---

func (d *Deserializer) jsonProperty(name string, v gjson.Result, anns map[string]gjson.Result, declared func(string) (edm.Property, bool)) (*data.Property, error) {
	typeName := ""
	facets := edm.Facets{}
	if t, ok := anns[annType]; ok {
		typeName = edm.NormalizeTypeName(t.String())
	} else if declared != nil {
		if p, ok := declared(name); ok {
			typeName = p.Type
			facets = p.Facets
		}
	}
	val, err := d.jsonValue(typeName, facets, v)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return &data.Property{Name: name, Type: valueType(val), Value: val}, nil
}

func (d *Deserializer) jsonValue(typeName string, facets edm.Facets, v gjson.Result) (data.Value, error) {
	if v.Type == gjson.Null {
		if err := edm.CheckNull(typeName, facets); err != nil {
			return nil, err
		}
		return data.Null{Type: typeName}, nil
	}
	if typeName == "" {
		return d.inferJSONValue(v)
	}
	ti, err := edm.ParseTypeInfo(typeName)
	if err != nil {
		return nil, err
	}
	if ti.Collection {
		if !v.IsArray() {
			return nil, fmt.Errorf("%w: %s needs a JSON array", ErrUnexpectedElement, typeName)
		}
		elem := ti.FQN.String()
		coll := data.Collection{Type: ti.String()}
		for i, item := range v.Array() {
			iv, err := d.jsonValue(elem, facets, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			coll.Items = append(coll.Items, iv)
		}
		return coll, nil
	}
	if ti.IsPrimitive() {
		return d.jsonPrimitive(ti.FQN.String(), facets, v)
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("%w: %s needs a JSON object", ErrUnexpectedElement, typeName)
	}
	return d.jsonComplex(ti.FQN.String(), splitJSONObject(v))
}

func (d *Deserializer) jsonPrimitive(typeName string, facets edm.Facets, v gjson.Result) (data.Value, error) {
	desc, err := d.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	if geo, ok := desc.(edm.GeoDescriptor); ok && v.IsObject() {
		g, err := edm.ParseGeoJSON(geo.Dimension(), []byte(v.Raw))
		if err != nil {
			return nil, &edm.InvalidLexicalFormError{TypeName: desc.Name(), Lexical: v.Raw, Cause: err}
		}
		if _, err := desc.ValueToString(g, facets); err != nil {
			return nil, err
		}
		return data.Primitive{Type: desc.Name(), Value: g}, nil
	}
	if v.IsObject() || v.IsArray() {
		return nil, &edm.InvalidLexicalFormError{TypeName: desc.Name(), Lexical: v.Raw}
	}
	lexical := v.Raw
	switch v.Type {
	case gjson.String:
		lexical = v.Str
	case gjson.Number:
		if !desc.Kind().IsNumeric() {
			return nil, &edm.InvalidLexicalFormError{TypeName: desc.Name(), Lexical: v.Raw}
		}
	case gjson.True, gjson.False:
		if desc.Kind() != edm.KindBoolean {
			return nil, &edm.InvalidLexicalFormError{TypeName: desc.Name(), Lexical: v.Raw}
		}
	}
	val, err := desc.ValueOfString(lexical, facets)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return data.Null{Type: desc.Name()}, nil
	}
	return data.Primitive{Type: desc.Name(), Value: val}, nil
}

// inferJSONValue types a value that carries no type information.
func (d *Deserializer) inferJSONValue(v gjson.Result) (data.Value, error) {
	switch v.Type {
	case gjson.String:
		return data.Primitive{Type: "Edm.String", Value: v.Str}, nil
	case gjson.True, gjson.False:
		return data.Primitive{Type: "Edm.Boolean", Value: v.Bool()}, nil
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if p, err := d.primitive("Edm.Int64", edm.Facets{}, v.Raw); err == nil {
				return p, nil
			}
			return d.primitive("Edm.Decimal", edm.Facets{}, v.Raw)
		}
		return d.primitive("Edm.Double", edm.Facets{}, v.Raw)
	}
	if v.IsArray() {
		coll := data.Collection{}
		for _, item := range v.Array() {
			iv, err := d.jsonValue("", edm.Facets{}, item)
			if err != nil {
				return nil, err
			}
			coll.Items = append(coll.Items, iv)
		}
		return coll, nil
	}
	return d.jsonComplex("", splitJSONObject(v))
}

func (d *Deserializer) jsonComplex(typeName string, obj *jsonObject) (data.Value, error) {
	if t, ok := obj.annotation(annType); ok {
		typeName = edm.NormalizeTypeName(t)
	}
	declared := d.declared(typeName)
	c := data.Complex{Type: typeName}
	for _, m := range obj.props {
		p, err := d.jsonProperty(m.name, m.value, obj.propAnnotations[m.name], declared)
		if err != nil {
			return nil, err
		}
		c.Properties = append(c.Properties, p)
	}
	return c, nil
}

func jsonInt(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.Number:
		if strings.ContainsAny(v.Raw, ".eE") {
			return 0, fmt.Errorf("not an integer: %s", v.Raw)
		}
		return v.Int(), nil
	case gjson.String:
		var n int64
		if _, err := fmt.Sscan(v.Str, &n); err != nil {
			return 0, err
		}
		return n, nil
	}
	return 0, fmt.Errorf("not an integer: %s", v.Raw)
}
