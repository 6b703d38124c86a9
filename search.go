package vecdb

import (
	"context"
	"time"

	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/metadata"
)

// SearchResult is one hit of a similarity search.
type SearchResult = registry.Hit

// SearchOptions tunes a single search.
type SearchOptions struct {
	// EF overrides the collection's search breadth. It is raised to at
	// least the number of requested candidates.
	EF int
	// OverSample multiplies k when filters or tombstones are in play.
	// Zero uses the DB default.
	OverSample int
	// Filter restricts results to records whose metadata matches.
	Filter *metadata.FilterSet
}

// Search returns up to k live records of a collection ranked by
// similarity to query, best first. Scores are in [-1, 1] for the cosine
// metric, with 1 meaning identical direction.
func (db *DB) Search(ctx context.Context, collectionID string, query []float32, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}

	opts := SearchOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()

	hits, err := db.reg.Search(ctx, collectionID, query, k, registry.SearchParams{
		EF:         opts.EF,
		OverSample: opts.OverSample,
		Filter:     opts.Filter,
	})
	err = translateError(err)

	db.metrics.RecordSearch(k, time.Since(start), err)
	db.logger.LogSearch(ctx, collectionID, k, len(hits), err)

	if err != nil {
		return nil, err
	}

	return hits, nil
}

// Query creates a fluent search over a collection.
//
// Example:
//
//	results, err := db.Query(collectionID, vec).
//	    KNN(5).
//	    Where(metadata.Eq("lang", metadata.String("en"))).
//	    Execute(ctx)
func (db *DB) Query(collectionID string, query []float32) *QueryBuilder {
	return &QueryBuilder{
		db:           db,
		collectionID: collectionID,
		query:        query,
		k:            10,
	}
}

// QueryBuilder is a fluent builder for a single search.
type QueryBuilder struct {
	db           *DB
	collectionID string
	query        []float32
	k            int
	ef           int
	overSample   int
	filters      []metadata.Filter
}

// Vector replaces the query vector, so one builder can serve many queries.
func (qb *QueryBuilder) Vector(query []float32) *QueryBuilder {
	qb.query = query
	return qb
}

// KNN sets the number of results to return.
func (qb *QueryBuilder) KNN(k int) *QueryBuilder {
	qb.k = k
	return qb
}

// EF sets the search breadth. Higher values improve recall but slow down search.
func (qb *QueryBuilder) EF(ef int) *QueryBuilder {
	qb.ef = ef
	return qb
}

// OverSample sets the candidate multiplier used when filtering.
func (qb *QueryBuilder) OverSample(factor int) *QueryBuilder {
	qb.overSample = factor
	return qb
}

// Where adds metadata conditions. All conditions must match.
func (qb *QueryBuilder) Where(filters ...metadata.Filter) *QueryBuilder {
	qb.filters = append(qb.filters, filters...)
	return qb
}

// Execute runs the search.
func (qb *QueryBuilder) Execute(ctx context.Context) ([]SearchResult, error) {
	return qb.db.Search(ctx, qb.collectionID, qb.query, qb.k, func(o *SearchOptions) {
		o.EF = qb.ef
		o.OverSample = qb.overSample
		if len(qb.filters) > 0 {
			o.Filter = metadata.NewFilterSet(qb.filters...)
		}
	})
}

// First returns only the best result, or ErrNotFound if there is none.
func (qb *QueryBuilder) First(ctx context.Context) (SearchResult, error) {
	qb.k = 1

	results, err := qb.Execute(ctx)
	if err != nil {
		return SearchResult{}, err
	}

	if len(results) == 0 {
		return SearchResult{}, ErrNotFound
	}

	return results[0], nil
}

// Exists reports whether at least one record matches.
func (qb *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	_, err := qb.First(ctx)
	if err == nil {
		return true, nil
	}

	if KindOf(err) == KindNotFound {
		// A missing collection is still an error.
		if _, getErr := qb.db.reg.Get(qb.collectionID); getErr != nil {
			return false, err
		}

		return false, nil
	}

	return false, err
}
