package registry

import (
	"slices"
	"time"

	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/metadata"
)

// ReservedName may only be used as a collection name with an explicit override.
const ReservedName = "default"

// Collection is a point-in-time snapshot of a collection's descriptive state.
type Collection struct {
	ID          string
	Name        string
	Description string
	IsPublic    bool
	Dimension   int
	Metric      distance.Metric

	// RecordCount is the number of live records, plus the count reported by
	// the ledger for shadow collections.
	RecordCount int
	// LiveCount is the number of live records held locally.
	LiveCount int

	ContentHash string
	Created     time.Time
	Updated     time.Time

	// Shadow marks a collection synthesized from ledger metadata. Its index
	// starts empty because vectors are never stored in the ledger.
	Shadow bool
}

// Record is an immutable stored vector.
type Record struct {
	ID         string
	InternalID uint32
	Vector     []float32
	Metadata   metadata.Document
	Created    time.Time
}

// clone returns a deep copy so callers cannot mutate stored state.
func (r Record) clone() Record {
	r.Vector = slices.Clone(r.Vector)
	r.Metadata = r.Metadata.Clone()
	return r
}

// CreateParams describes a new collection.
type CreateParams struct {
	Name              string
	Description       string
	Dimension         int
	Metric            distance.Metric
	IsPublic          bool
	AllowReservedName bool
}

// Item is a vector with optional metadata for batch inserts.
type Item struct {
	Vector   []float32
	Metadata metadata.Document
}

// SearchParams tunes a single search.
type SearchParams struct {
	// EF overrides the collection's search beam width when > 0.
	EF int
	// OverSample overrides Options.OverSampleFactor when > 0.
	OverSample int
	// Filter restricts hits to records whose metadata matches.
	Filter *metadata.FilterSet
}

// Hit is a search result.
type Hit struct {
	RecordID string
	Score    float32
	Distance float32
	Metadata metadata.Document
}

// Page is one page of records in insertion order.
type Page struct {
	Records []Record
	HasMore bool
	Total   int
}
