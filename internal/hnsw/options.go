package hnsw

import (
	"log/slog"

	"github.com/hupe1980/vecdb/distance"
)

const (
	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links.
	DefaultM = 16

	// DefaultEFConstruction is the default construction beam width.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default search beam width.
	DefaultEFSearch = 64

	// bruteForceThreshold is the Allow cardinality below which a bitmap
	// search scans the bitmap instead of walking the graph.
	bruteForceThreshold = 2000
)

// Options represents the options for configuring HNSW.
type Options struct {
	Dimension      int
	M              int
	EFConstruction int
	EFSearch       int
	Heuristic      bool
	DistanceType   distance.Metric
	RandomSeed     *int64
	Logger         *slog.Logger
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Heuristic:      true,
	DistanceType:   distance.MetricCosine,
}
