package registry

import (
	"log/slog"
	"time"

	"github.com/hupe1980/vecdb/internal/hnsw"
)

// DefaultOverSampleFactor multiplies k when querying the index so that
// tombstoned and filtered hits can be dropped without returning fewer than k.
const DefaultOverSampleFactor = 2

// Options configures a Registry.
type Options struct {
	// M, EFConstruction and EFSearch are applied to every new collection index.
	M              int
	EFConstruction int
	EFSearch       int
	Heuristic      bool

	OverSampleFactor int

	// RandomSeed makes index level assignment reproducible.
	RandomSeed *int64

	Logger *slog.Logger

	// Now returns the current time; tests replace it.
	Now func() time.Time
}

// DefaultOptions contains the default options for a Registry.
var DefaultOptions = Options{
	M:                hnsw.DefaultM,
	EFConstruction:   hnsw.DefaultEFConstruction,
	EFSearch:         hnsw.DefaultEFSearch,
	Heuristic:        true,
	OverSampleFactor: DefaultOverSampleFactor,
	Now:              time.Now,
}
