// Package testutil provides testing utilities for vecdb.
//
// This package is intended for use in tests only. It provides helpers for
// generating random vectors and text, and for verifying search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformVectors(100, 128) // uniform [0, 1)
//	unit := rng.UnitVectors(100, 128)    // L2-normalized gaussian
//
// # Random Text
//
//	text := rng.Text(50, 5) // 50 sentences, blank line every 5
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exactIDs, approxIDs)
package testutil
