package hnsw

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	ErrEmptyVector = errors.New("vector cannot be empty")
	ErrInvalidK    = errors.New("k must be positive")
)

type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Filter decides whether a node may appear in search results.
// Traversal still passes through nodes that do not match.
type Filter interface {
	Matches(id uint32) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(id uint32) bool

// Matches implements Filter.
func (f FilterFunc) Matches(id uint32) bool { return f(id) }

type SearchResult struct {
	ID       uint32
	Distance float32
	// Score is the similarity derived from Distance; larger is closer.
	Score float32
}

type SearchOptions struct {
	// EFSearch overrides the configured search beam width when > 0.
	EFSearch int

	// Filter restricts results to matching nodes.
	Filter Filter

	// Allow restricts results to the IDs in the bitmap. When it selects few
	// nodes the bitmap is scanned exactly instead of traversing the graph.
	Allow *roaring.Bitmap
}

type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections int
}

type Stats struct {
	Options    map[string]string
	Parameters map[string]string
	Storage    map[string]string
	Levels     []LevelStats
}
