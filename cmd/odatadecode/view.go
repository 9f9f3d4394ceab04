package main

import (
	"math"
	"net/url"

	"github.com/CaliLuke/go-odata/data"
	"github.com/CaliLuke/go-odata/edm"
)

// viewer renders decoded payloads as plain maps and slices that both the
// JSON and the msgpack encoders handle. Values without a native encoding
// are rendered in their lexical form.
type viewer struct {
	registry *edm.Registry
}

func wrapView(ctx *url.URL, md map[string]any, payload any) map[string]any {
	out := map[string]any{"payload": payload}
	if ctx != nil {
		out["context"] = ctx.String()
	}
	if len(md) > 0 {
		out["metadata"] = md
	}
	return out
}

func (v *viewer) entitySet(set *data.EntitySet) map[string]any {
	out := map[string]any{}
	if set.Count != nil {
		out["count"] = *set.Count
	}
	if set.NextLink != nil {
		out["nextLink"] = set.NextLink.String()
	}
	entities := make([]any, 0, len(set.Entities))
	for _, e := range set.Entities {
		entities = append(entities, v.entity(e))
	}
	out["entities"] = entities
	return out
}

func (v *viewer) entity(e *data.Entity) map[string]any {
	out := map[string]any{}
	for k, s := range map[string]string{
		"@type":     e.Type,
		"@id":       e.ID,
		"@etag":     e.ETag,
		"@editLink": e.EditLink,
	} {
		if s != "" {
			out[k] = s
		}
	}
	for _, p := range e.Properties {
		out[p.Name] = v.value(p.Value)
	}
	for _, l := range e.NavigationLinks {
		if l.Href != "" {
			out[l.Name+"@navigationLink"] = l.Href
		}
		switch {
		case l.InlineOne != nil:
			out[l.Name] = v.entity(l.InlineOne)
		case l.InlineMany != nil:
			out[l.Name] = v.entitySet(l.InlineMany)
		}
	}
	return out
}

func (v *viewer) property(p *data.Property) map[string]any {
	out := map[string]any{"value": v.value(p.Value)}
	if p.Name != "" {
		out["name"] = p.Name
	}
	if p.Type != "" {
		out["type"] = p.Type
	}
	return out
}

func (v *viewer) value(val data.Value) any {
	switch x := val.(type) {
	case data.Primitive:
		return v.primitive(x)
	case data.Complex:
		out := make(map[string]any, len(x.Properties))
		for _, p := range x.Properties {
			out[p.Name] = v.value(p.Value)
		}
		return out
	case data.Collection:
		items := make([]any, 0, len(x.Items))
		for _, it := range x.Items {
			items = append(items, v.value(it))
		}
		return items
	}
	return nil
}

func (v *viewer) primitive(p data.Primitive) any {
	switch x := p.Value.(type) {
	case bool, string, int8, int16, int32, int64, uint8:
		return x
	case float64:
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			return x
		}
	case float32:
		if f := float64(x); !math.IsInf(f, 0) && !math.IsNaN(f) {
			return x
		}
	}
	desc, err := v.registry.Lookup(p.Type)
	if err != nil {
		log.Debugf("no descriptor for %s: %v", p.Type, err)
		return nil
	}
	s, err := desc.ValueToString(p.Value, edm.NoFacets())
	if err != nil {
		log.Debugf("render %s: %v", p.Type, err)
		return nil
	}
	return s
}

func errorView(e *data.Error) map[string]any {
	out := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Target != "" {
		out["target"] = e.Target
	}
	if len(e.Details) > 0 {
		details := make([]any, 0, len(e.Details))
		for _, d := range e.Details {
			details = append(details, map[string]any{
				"code":    d.Code,
				"message": d.Message,
				"target":  d.Target,
			})
		}
		out["details"] = details
	}
	if len(e.InnerError) > 0 {
		out["innererror"] = e.InnerError
	}
	return out
}
