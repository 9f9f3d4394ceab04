package serde

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/CaliLuke/go-odata/data"
	"github.com/CaliLuke/go-odata/edm"
)

// XML namespaces understood by the Atom reader.
const (
	NamespaceAtom       = "http://www.w3.org/2005/Atom"
	NamespaceMetadata   = "http://docs.oasis-open.org/odata/ns/metadata"
	NamespaceData       = "http://docs.oasis-open.org/odata/ns/data"
	NamespaceMetadataV3 = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	NamespaceDataV3     = "http://schemas.microsoft.com/ado/2007/08/dataservices"

	relatedPrefix   = "http://docs.oasis-open.org/odata/ns/related/"
	relatedPrefixV3 = NamespaceDataV3 + "/related/"
)

// xmlNode is a parsed element. Only element and character data are kept.
type xmlNode struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*xmlNode
	text     string
}

func isMetadataNS(space string) bool {
	return space == NamespaceMetadata || space == NamespaceMetadataV3
}

func isDataNS(space string) bool {
	return space == NamespaceData || space == NamespaceDataV3
}

func (n *xmlNode) is(space, local string) bool {
	return n.name.Space == space && n.name.Local == local
}

func (n *xmlNode) isMetadata(local string) bool {
	return isMetadataNS(n.name.Space) && n.name.Local == local
}

func (n *xmlNode) attr(space, local string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Local == local && (a.Name.Space == space || (space == "" && a.Name.Space == "")) {
			return a.Value, true
		}
	}
	return "", false
}

// metaAttr returns an attribute in either metadata namespace.
func (n *xmlNode) metaAttr(local string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Local == local && isMetadataNS(a.Name.Space) {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) child(match func(*xmlNode) bool) *xmlNode {
	for _, c := range n.children {
		if match(c) {
			return c
		}
	}
	return nil
}

func (n *xmlNode) childText(match func(*xmlNode) bool) string {
	if c := n.child(match); c != nil {
		return strings.TrimSpace(c.text)
	}
	return ""
}

func atomElem(local string) func(*xmlNode) bool {
	return func(n *xmlNode) bool { return n.is(NamespaceAtom, local) }
}

func metaElem(local string) func(*xmlNode) bool {
	return func(n *xmlNode) bool { return n.isMetadata(local) }
}

// parseXML reads buf into an element tree.
func parseXML(buf []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(buf))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name, attrs: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: more than one root element", ErrMalformed)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return root, nil
}

// atomEnvelope reads the context URL of a root element.
func atomEnvelope(root *xmlNode) (*url.URL, error) {
	s, ok := root.metaAttr("context")
	if !ok {
		return nil, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid context URL: %v", ErrMalformed, err)
	}
	return u, nil
}

// --- readers ---

func readAtomEntity(d *Deserializer, buf []byte) (*data.ResWrap[*data.Entity], error) {
	root, err := parseXML(buf)
	if err != nil {
		return nil, err
	}
	if !root.is(NamespaceAtom, "entry") {
		return nil, fmt.Errorf("%w: got <%s>, want atom:entry", ErrUnexpectedElement, root.name.Local)
	}
	ctx, err := atomEnvelope(root)
	if err != nil {
		return nil, err
	}
	e, err := d.atomEntity(root, d.entityTypeHint(contextEntityType(ctx)))
	if err != nil {
		return nil, err
	}
	return data.NewResWrap(ctx, nil, e), nil
}

func readAtomEntitySet(d *Deserializer, buf []byte) (*data.ResWrap[*data.EntitySet], error) {
	root, err := parseXML(buf)
	if err != nil {
		return nil, err
	}
	if !root.is(NamespaceAtom, "feed") {
		return nil, fmt.Errorf("%w: got <%s>, want atom:feed", ErrUnexpectedElement, root.name.Local)
	}
	ctx, err := atomEnvelope(root)
	if err != nil {
		return nil, err
	}
	set, err := d.atomFeed(root, d.entityTypeHint(contextEntityType(ctx)))
	if err != nil {
		return nil, err
	}
	var md map[string]any
	if id := root.childText(atomElem("id")); id != "" {
		md = map[string]any{"id": id}
	}
	return data.NewResWrap(ctx, md, set), nil
}

func readXMLProperty(d *Deserializer, buf []byte) (*data.ResWrap[*data.Property], error) {
	root, err := parseXML(buf)
	if err != nil {
		return nil, err
	}
	if !root.isMetadata("value") && !isDataNS(root.name.Space) {
		return nil, fmt.Errorf("%w: got <%s>, want a property element", ErrUnexpectedElement, root.name.Local)
	}
	ctx, err := atomEnvelope(root)
	if err != nil {
		return nil, err
	}
	name := root.name.Local
	if root.isMetadata("value") {
		name = ""
		if ctx != nil {
			name = contextPropertyName(ctx.Fragment)
		}
	}
	typeName := ""
	if ctx != nil {
		typeName = contextTypeName(ctx.Fragment)
	}
	val, err := d.atomValue(root, typeName, edm.Facets{})
	if err != nil {
		return nil, err
	}
	return data.NewResWrap(ctx, nil, &data.Property{Name: name, Type: valueType(val), Value: val}), nil
}

func readXMLError(_ *Deserializer, buf []byte) (*data.ResWrap[*data.Error], error) {
	root, err := parseXML(buf)
	if err != nil {
		return nil, err
	}
	if !root.isMetadata("error") {
		return nil, fmt.Errorf("%w: got <%s>, want m:error", ErrUnexpectedElement, root.name.Local)
	}
	e := &data.Error{
		Code:    root.childText(metaElem("code")),
		Message: root.childText(metaElem("message")),
		Target:  root.childText(metaElem("target")),
	}
	if details := root.child(metaElem("details")); details != nil {
		for _, det := range details.children {
			if !det.isMetadata("detail") {
				continue
			}
			e.Details = append(e.Details, data.ErrorDetail{
				Code:    det.childText(metaElem("code")),
				Message: det.childText(metaElem("message")),
				Target:  det.childText(metaElem("target")),
			})
		}
	}
	if inner := root.child(metaElem("innererror")); inner != nil {
		if m, ok := xmlToMap(inner).(map[string]any); ok {
			e.InnerError = m
		}
	}
	return data.NewResWrap(nil, nil, e), nil
}

// xmlToMap turns a free-form element into nested maps keyed by local name;
// leaf elements become their text.
func xmlToMap(n *xmlNode) any {
	if len(n.children) == 0 {
		return strings.TrimSpace(n.text)
	}
	m := make(map[string]any, len(n.children))
	for _, c := range n.children {
		m[c.name.Local] = xmlToMap(c)
	}
	return m
}

// --- entries and feeds ---

func (d *Deserializer) atomFeed(feed *xmlNode, typeHint string) (*data.EntitySet, error) {
	set := &data.EntitySet{}
	for _, c := range feed.children {
		switch {
		case c.isMetadata("count"):
			n, err := strconv.ParseInt(strings.TrimSpace(c.text), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: m:count: %v", ErrMalformed, err)
			}
			set.Count = &n
		case c.is(NamespaceAtom, "link"):
			if rel, _ := c.attr("", "rel"); rel == "next" {
				href, _ := c.attr("", "href")
				u, err := url.Parse(href)
				if err != nil {
					return nil, fmt.Errorf("%w: next link: %v", ErrMalformed, err)
				}
				set.NextLink = u
			}
		case c.is(NamespaceAtom, "entry"):
			e, err := d.atomEntity(c, typeHint)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", len(set.Entities), err)
			}
			set.Entities = append(set.Entities, e)
		}
	}
	return set, nil
}

// atomEntity reads one entry. typeHint types the entry when it carries no
// category term.
func (d *Deserializer) atomEntity(entry *xmlNode, typeHint string) (*data.Entity, error) {
	e := &data.Entity{Type: typeHint}
	e.ETag, _ = entry.metaAttr("etag")
	e.ID = entry.childText(atomElem("id"))
	if cat := entry.child(atomElem("category")); cat != nil {
		if term, ok := cat.attr("", "term"); ok {
			e.Type = edm.NormalizeTypeName(term)
		}
	}

	var props *xmlNode
	for _, c := range entry.children {
		switch {
		case c.is(NamespaceAtom, "link"):
			if err := d.atomLink(e, c); err != nil {
				return nil, err
			}
		case c.is(NamespaceAtom, "content"):
			if p := c.child(metaElem("properties")); p != nil {
				props = p
			}
		case c.isMetadata("properties"):
			props = c
		}
	}
	if props == nil {
		return e, nil
	}

	declared := d.declared(e.Type)
	for _, pn := range props.children {
		p, err := d.atomProperty(pn, declared)
		if err != nil {
			return nil, err
		}
		e.Properties = append(e.Properties, p)
	}
	return e, nil
}

func (d *Deserializer) atomLink(e *data.Entity, ln *xmlNode) error {
	rel, _ := ln.attr("", "rel")
	href, _ := ln.attr("", "href")
	if rel == "edit" {
		e.EditLink = href
		return nil
	}
	name, ok := strings.CutPrefix(rel, relatedPrefix)
	if !ok {
		name, ok = strings.CutPrefix(rel, relatedPrefixV3)
	}
	if !ok {
		return nil
	}
	nav, known, err := d.navigation(e.Type, name)
	if err != nil {
		return err
	}
	target := ""
	if known {
		target = nav.TargetType().String()
	}
	link := &data.Link{Name: name, Href: href}
	if inline := ln.child(metaElem("inline")); inline != nil {
		for _, c := range inline.children {
			switch {
			case c.is(NamespaceAtom, "entry"):
				if known && nav.IsCollection() {
					return fmt.Errorf("%w: entry for collection-valued navigation %s", ErrUnexpectedElement, name)
				}
				inner, err := d.atomEntity(c, target)
				if err != nil {
					return fmt.Errorf("navigation property %s: %w", name, err)
				}
				link.InlineOne = inner
			case c.is(NamespaceAtom, "feed"):
				if known && !nav.IsCollection() {
					return fmt.Errorf("%w: feed for single-valued navigation %s", ErrUnexpectedElement, name)
				}
				inner, err := d.atomFeed(c, target)
				if err != nil {
					return fmt.Errorf("navigation property %s: %w", name, err)
				}
				link.InlineMany = inner
			}
		}
	}
	e.NavigationLinks = append(e.NavigationLinks, link)
	return nil
}

// --- values ---

func (d *Deserializer) atomProperty(n *xmlNode, declared func(string) (edm.Property, bool)) (*data.Property, error) {
	name := n.name.Local
	typeName := ""
	facets := edm.Facets{}
	if declared != nil {
		if p, ok := declared(name); ok {
			typeName = p.Type
			facets = p.Facets
		}
	}
	val, err := d.atomValue(n, typeName, facets)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return &data.Property{Name: name, Type: valueType(val), Value: val}, nil
}

// atomValue converts one property element. An m:type attribute wins over
// the type the caller derived from the model or context.
func (d *Deserializer) atomValue(n *xmlNode, typeName string, facets edm.Facets) (data.Value, error) {
	if t, ok := n.metaAttr("type"); ok {
		typeName = edm.NormalizeTypeName(t)
	}
	if null, _ := n.metaAttr("null"); null == "true" {
		if err := edm.CheckNull(typeName, facets); err != nil {
			return nil, err
		}
		return data.Null{Type: typeName}, nil
	}

	if typeName == "" {
		switch {
		case len(n.children) == 0:
			typeName = "Edm.String"
		case allChildren(n, func(c *xmlNode) bool { return c.isMetadata("element") }):
			return d.atomCollection(n, "", facets)
		default:
			return d.atomComplex(n, "")
		}
	}

	ti, err := edm.ParseTypeInfo(typeName)
	if err != nil {
		return nil, err
	}
	switch {
	case ti.Collection:
		return d.atomCollection(n, ti.String(), facets)
	case ti.IsPrimitive():
		name := ti.FQN.String()
		if len(n.children) > 0 {
			if desc, err := d.registry.Lookup(name); err == nil && desc.Kind() == edm.KindGeospatial {
				return nil, fmt.Errorf("%w: GML encoded %s values are not supported", ErrUnexpectedElement, name)
			}
			return nil, fmt.Errorf("%w: %s value has child elements", ErrUnexpectedElement, name)
		}
		lexical := n.text
		if name != "Edm.String" {
			lexical = strings.TrimSpace(lexical)
		}
		return d.primitive(name, facets, lexical)
	default:
		return d.atomComplex(n, ti.FQN.String())
	}
}

func (d *Deserializer) atomCollection(n *xmlNode, typeName string, facets edm.Facets) (data.Value, error) {
	elem := ""
	if typeName != "" {
		ti, err := edm.ParseTypeInfo(typeName)
		if err != nil {
			return nil, err
		}
		elem = ti.FQN.String()
	}
	coll := data.Collection{Type: typeName}
	for i, c := range n.children {
		if !c.isMetadata("element") && !isDataNS(c.name.Space) {
			return nil, fmt.Errorf("%w: collection member <%s>", ErrUnexpectedElement, c.name.Local)
		}
		v, err := d.atomValue(c, elem, facets)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		coll.Items = append(coll.Items, v)
	}
	return coll, nil
}

func (d *Deserializer) atomComplex(n *xmlNode, typeName string) (data.Value, error) {
	declared := d.declared(typeName)
	c := data.Complex{Type: typeName}
	for _, pn := range n.children {
		p, err := d.atomProperty(pn, declared)
		if err != nil {
			return nil, err
		}
		c.Properties = append(c.Properties, p)
	}
	return c, nil
}

func allChildren(n *xmlNode, match func(*xmlNode) bool) bool {
	for _, c := range n.children {
		if !match(c) {
			return false
		}
	}
	return len(n.children) > 0
}
