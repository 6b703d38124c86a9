// Package metadata provides typed metadata documents and filtering.
//
// # Metadata Types
//
// Metadata values form a closed set of kinds:
//
//   - String: metadata.String("tech")
//   - Int: metadata.Int(2024)
//   - Float: metadata.Float(3.14)
//   - Bool: metadata.Bool(true)
//   - Map: metadata.Map(metadata.Document{...})
//
// Arrays exist only as operands of the OpIn filter operator.
//
// Example:
//
//	meta := metadata.Document{
//	    "category": metadata.String("tech"),
//	    "year":     metadata.Int(2024),
//	    "author":   metadata.Map(metadata.Document{"name": metadata.String("ada")}),
//	}
//
// # Filtering
//
// A FilterSet is a conjunction of Filter conditions. Keys may address nested
// maps with dotted paths ("author.name").
//
//	fs := metadata.NewFilterSet(
//	    metadata.Filter{Key: "category", Operator: metadata.OpEqual, Value: metadata.String("tech")},
//	    metadata.Filter{Key: "year", Operator: metadata.OpGreaterEqual, Value: metadata.Int(2020)},
//	)
//
// UnifiedIndex keeps an inverted index of Roaring Bitmaps so equality and
// membership filters compile to bitmaps without scanning documents.
package metadata
