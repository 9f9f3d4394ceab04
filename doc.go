// Package goodata decodes OData payloads into a typed object model.
//
// The module is organized into four packages:
//
//   - [github.com/CaliLuke/go-odata/edm]: primitive and geospatial type
//     descriptors, the type registry, type names and navigation properties
//   - [github.com/CaliLuke/go-odata/data]: entities, entity sets,
//     properties, values, service errors and the ResWrap envelope
//   - [github.com/CaliLuke/go-odata/serde]: the Deserializer with its
//     Atom/XML and JSON readers
//   - [github.com/CaliLuke/go-odata/csdl]: loads a $metadata document
//     into an edm model
//
// The odatadecode command in cmd/odatadecode decodes a payload file from
// the command line.
package goodata
