package data

import "net/url"

// Link is a navigation link. Inline holds an expanded entity or entity set
// when the payload carried one.
type Link struct {
	Name       string
	Href       string
	InlineOne  *Entity
	InlineMany *EntitySet
}

// Entity is a single decoded entity.
type Entity struct {
	Type            string
	ID              string
	ETag            string
	EditLink        string
	Properties      []*Property
	NavigationLinks []*Link
}

// Property returns the property called name.
func (e *Entity) Property(name string) (*Property, bool) {
	return findProperty(e.Properties, name)
}

// Link returns the navigation link called name.
func (e *Entity) Link(name string) (*Link, bool) {
	for _, l := range e.NavigationLinks {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// EntitySet is a decoded collection of entities.
type EntitySet struct {
	Count    *int64
	NextLink *url.URL
	Entities []*Entity
}
