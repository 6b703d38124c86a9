// Package hnsw implements Hierarchical Navigable Small World graphs.
//
// HNSW provides approximate nearest neighbor search with high recall and
// sub-linear query time.
//
// # Features
//
//   - Node arena addressed by stable uint32 IDs
//   - Single writer, concurrent readers (RWMutex)
//   - Heuristic neighbor selection with fill-up
//   - Bitmap-restricted search with brute-force fallback for selective filters
//   - Deterministic level assignment when RandomSeed is set
//
// # Parameters
//
//   - M: Max connections per node on upper layers (default: 16, 2*M on layer 0)
//   - EFConstruction: Construction beam width (default: 200)
//   - EFSearch: Search beam width (default: 64), raised to k when smaller
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
