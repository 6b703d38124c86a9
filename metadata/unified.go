package metadata

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// UnifiedIndex combines metadata storage with inverted indexing using Roaring Bitmaps.
//
// Architecture:
//   - Primary storage: map[uint32]Document (metadata by ID)
//   - Inverted index: map[path]map[valueKey]*roaring.Bitmap (posting lists)
//
// Nested maps are indexed under every dotted path as well as under their
// top-level key, so filters on "author.name" and on "author" both compile.
type UnifiedIndex struct {
	mu sync.RWMutex

	documents map[uint32]Document

	// field path -> valueKey -> bitmap of IDs
	inverted map[string]map[string]*roaring.Bitmap
}

// NewUnifiedIndex creates a new unified metadata index.
func NewUnifiedIndex() *UnifiedIndex {
	return &UnifiedIndex{
		documents: make(map[uint32]Document),
		inverted:  make(map[string]map[string]*roaring.Bitmap),
	}
}

// Set stores metadata for an ID and updates the inverted index.
// This replaces any existing metadata for the ID.
func (ui *UnifiedIndex) Set(id uint32, doc Document) {
	if doc == nil {
		return
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()

	if oldDoc, exists := ui.documents[id]; exists {
		walk("", oldDoc, func(path string, v Value) { ui.removeLocked(id, path, v) })
	}

	ui.documents[id] = doc
	walk("", doc, func(path string, v Value) { ui.addLocked(id, path, v) })
}

// Get retrieves metadata for an ID.
func (ui *UnifiedIndex) Get(id uint32) (Document, bool) {
	ui.mu.RLock()
	defer ui.mu.RUnlock()

	doc, ok := ui.documents[id]
	return doc, ok
}

// Delete removes metadata for an ID and updates the inverted index.
func (ui *UnifiedIndex) Delete(id uint32) {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	if doc, exists := ui.documents[id]; exists {
		walk("", doc, func(path string, v Value) { ui.removeLocked(id, path, v) })
	}

	delete(ui.documents, id)
}

// Len returns the number of documents in the index.
func (ui *UnifiedIndex) Len() int {
	ui.mu.RLock()
	defer ui.mu.RUnlock()

	return len(ui.documents)
}

func walk(prefix string, doc Document, fn func(path string, v Value)) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		fn(path, value)

		if value.Kind == KindMap {
			walk(path, value.M, fn)
		}
	}
}

func (ui *UnifiedIndex) addLocked(id uint32, path string, value Value) {
	valueMap, ok := ui.inverted[path]
	if !ok {
		valueMap = make(map[string]*roaring.Bitmap)
		ui.inverted[path] = valueMap
	}

	valueKey := value.Key()
	bitmap, ok := valueMap[valueKey]
	if !ok {
		bitmap = roaring.New()
		valueMap[valueKey] = bitmap
	}

	bitmap.Add(id)
}

func (ui *UnifiedIndex) removeLocked(id uint32, path string, value Value) {
	valueMap, ok := ui.inverted[path]
	if !ok {
		return
	}

	valueKey := value.Key()
	bitmap, ok := valueMap[valueKey]
	if !ok {
		return
	}

	bitmap.Remove(id)

	if bitmap.IsEmpty() {
		delete(valueMap, valueKey)
		if len(valueMap) == 0 {
			delete(ui.inverted, path)
		}
	}
}

// CompileFilter compiles a FilterSet into a bitmap of matching IDs.
//
// Supported operators:
//   - OpEqual: field == value
//   - OpIn: field IN (value1, value2, ...)
//   - OpExists: field present
//
// ok is false when the set contains any other operator; the caller then
// evaluates the set per document with Matches.
func (ui *UnifiedIndex) CompileFilter(fs *FilterSet) (result *roaring.Bitmap, ok bool) {
	if fs.IsEmpty() {
		return nil, false
	}

	ui.mu.RLock()
	defer ui.mu.RUnlock()

	for _, filter := range fs.Filters {
		var filterBitmap *roaring.Bitmap

		switch filter.Operator {
		case OpEqual:
			filterBitmap = ui.getBitmapLocked(filter.Key, filter.Value)

		case OpIn:
			arr, isArr := filter.Value.AsArray()
			if !isArr {
				return nil, false
			}

			filterBitmap = roaring.New()
			for _, v := range arr {
				if bitmap := ui.getBitmapLocked(filter.Key, v); bitmap != nil {
					filterBitmap.Or(bitmap)
				}
			}

		case OpExists:
			filterBitmap = roaring.New()
			for _, bitmap := range ui.inverted[filter.Key] {
				filterBitmap.Or(bitmap)
			}

		default:
			return nil, false
		}

		if filterBitmap == nil {
			return roaring.New(), true
		}

		if result == nil {
			result = filterBitmap.Clone()
		} else {
			result.And(filterBitmap)
		}

		if result.IsEmpty() {
			return result, true
		}
	}

	return result, true
}

func (ui *UnifiedIndex) getBitmapLocked(path string, value Value) *roaring.Bitmap {
	valueMap, ok := ui.inverted[path]
	if !ok {
		return nil
	}

	bitmap, ok := valueMap[value.Key()]
	if !ok {
		return nil
	}

	return bitmap
}

// CreateFilterFunc creates a membership test from a FilterSet.
//
// The fast path compiles the set to a bitmap; otherwise each ID's document
// is evaluated with Matches under the read lock.
func (ui *UnifiedIndex) CreateFilterFunc(fs *FilterSet) func(uint32) bool {
	if fs.IsEmpty() {
		return nil
	}

	if bitmap, ok := ui.CompileFilter(fs); ok {
		return bitmap.Contains
	}

	return func(id uint32) bool {
		ui.mu.RLock()
		doc, ok := ui.documents[id]
		ui.mu.RUnlock()

		if !ok {
			return fs.Matches(nil)
		}
		return fs.Matches(doc)
	}
}

// Stats returns statistics about the unified index.
type Stats struct {
	DocumentCount    int    // Total documents
	FieldCount       int    // Number of indexed field paths
	BitmapCount      int    // Total number of bitmaps
	TotalCardinality uint64 // Sum of all bitmap cardinalities
	MemoryBytes      uint64 // Estimated bitmap memory usage
}

// GetStats returns statistics about the index.
func (ui *UnifiedIndex) GetStats() Stats {
	ui.mu.RLock()
	defer ui.mu.RUnlock()

	stats := Stats{
		DocumentCount: len(ui.documents),
		FieldCount:    len(ui.inverted),
	}

	for _, valueMap := range ui.inverted {
		for _, bitmap := range valueMap {
			stats.BitmapCount++
			stats.TotalCardinality += bitmap.GetCardinality()
			stats.MemoryBytes += bitmap.GetSizeInBytes()
		}
	}

	return stats
}
