package serde

import "strings"

// PubFormat selects the wire family for entities and entity sets.
type PubFormat int

const (
	// PubFormatAtom is the Atom feed/entry XML family.
	PubFormatAtom PubFormat = iota
	// PubFormatJSON is the JSON family.
	PubFormatJSON
)

// String returns "atom" or "json".
func (f PubFormat) String() string {
	switch f {
	case PubFormatAtom:
		return "atom"
	case PubFormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Format selects the wire family for properties.
type Format int

const (
	// FormatXML is the XML property format.
	FormatXML Format = iota
	// FormatJSON is the JSON property format.
	FormatJSON
)

// String returns "xml" or "json".
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParsePubFormat maps "atom", "xml" and "json" to a PubFormat.
func ParsePubFormat(s string) (PubFormat, bool) {
	switch strings.ToLower(s) {
	case "atom", "xml":
		return PubFormatAtom, true
	case "json":
		return PubFormatJSON, true
	}
	return 0, false
}

// ParseFormat maps "xml", "atom" and "json" to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "xml", "atom":
		return FormatXML, true
	case "json":
		return FormatJSON, true
	}
	return 0, false
}
