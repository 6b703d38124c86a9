// Package registry owns collections and their records.
//
// Each collection is one entry combining its descriptive metadata, its HNSW
// index, its record store and a Roaring bitmap of live internal IDs.
// Entries live in a sync.Map and carry their own RWMutex, so mutations on one
// collection are serialized while different collections never contend.
//
// Records are never removed from the index. Delete tombstones a record by
// clearing its bit in the live bitmap, and search drops tombstoned hits after
// asking the index for k * OverSampleFactor candidates.
package registry
