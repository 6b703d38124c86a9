// Package searcher provides pooled search context for graph traversal.
//
// The Searcher struct owns the reusable resources needed for a query:
//   - Priority queues (candidates, results)
//   - Visited set (bitset with dirty list)
//   - Result scratch buffer
//
// Searchers are pooled with sync.Pool and are not safe for concurrent use.
package searcher
