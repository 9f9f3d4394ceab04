// Package data defines the object model produced by payload readers: entities,
// entity sets, properties, values and service errors, plus the result
// envelope that carries their context metadata.
package data

import "net/url"

// ResWrap wraps a decoded payload together with the context URL and the
// payload-level metadata annotations found in the source document.
// ContextURL and Metadata are nil when the document carried none.
type ResWrap[T any] struct {
	ContextURL *url.URL
	Metadata   map[string]any
	Payload    T
}

// NewResWrap returns a wrapper for payload.
func NewResWrap[T any](contextURL *url.URL, metadata map[string]any, payload T) *ResWrap[T] {
	return &ResWrap[T]{ContextURL: contextURL, Metadata: metadata, Payload: payload}
}

// ContextFragment returns the part of the context URL after '#', e.g.
// "People/$entity" or "Edm.String". It is empty without a context URL.
func (w *ResWrap[T]) ContextFragment() string {
	if w.ContextURL == nil {
		return ""
	}
	return w.ContextURL.Fragment
}
