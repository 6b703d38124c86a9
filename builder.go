package vecdb

import (
	"golang.org/x/time/rate"

	"github.com/hupe1980/vecdb/blobstore"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/ledger"
)

// Builder is an immutable fluent builder for a DB.
// Each method returns a new builder with the updated configuration.
//
// Example:
//
//	db, err := vecdb.NewBuilder().
//	    M(32).
//	    EFSearch(128).
//	    Embedder(embed.NewHash(384)).
//	    Build()
type Builder struct {
	m              int
	efConstruction int
	efSearch       int
	heuristic      bool
	randomSeed     *int64
	opts           []Option
}

// NewBuilder returns a builder with default index parameters.
func NewBuilder() Builder {
	return Builder{
		m:              registry.DefaultOptions.M,
		efConstruction: registry.DefaultOptions.EFConstruction,
		efSearch:       registry.DefaultOptions.EFSearch,
		heuristic:      registry.DefaultOptions.Heuristic,
	}
}

// with copies the option slice so builders derived from the same parent
// never share a backing array.
func (b Builder) with(opt Option) Builder {
	b.opts = append(append([]Option(nil), b.opts...), opt)
	return b
}

// M sets the maximum number of graph neighbors per node.
func (b Builder) M(m int) Builder {
	b.m = m
	return b
}

// EFConstruction sets the candidate list size used while inserting.
func (b Builder) EFConstruction(ef int) Builder {
	b.efConstruction = ef
	return b
}

// EFSearch sets the default candidate list size used while searching.
func (b Builder) EFSearch(ef int) Builder {
	b.efSearch = ef
	return b
}

// Heuristic toggles the neighbor selection heuristic.
func (b Builder) Heuristic(enabled bool) Builder {
	b.heuristic = enabled
	return b
}

// RandomSeed makes graph construction reproducible.
func (b Builder) RandomSeed(seed int64) Builder {
	b.randomSeed = &seed
	return b
}

// OverSample sets the default candidate multiplier for filtered searches.
func (b Builder) OverSample(f int) Builder { return b.with(WithOverSampleFactor(f)) }

// Logger sets the logger.
func (b Builder) Logger(l *Logger) Builder { return b.with(WithLogger(l)) }

// Metrics sets the metrics collector.
func (b Builder) Metrics(mc MetricsCollector) Builder { return b.with(WithMetricsCollector(mc)) }

// Embedder sets the embedding provider.
func (b Builder) Embedder(e embed.Embedder) Builder { return b.with(WithEmbedder(e)) }

// BlobStore archives raw documents in s.
func (b Builder) BlobStore(s blobstore.Store) Builder { return b.with(WithBlobStore(s)) }

// Ledger mirrors collection metadata into l.
func (b Builder) Ledger(l ledger.Ledger, optFns ...func(*ledger.SyncOptions)) Builder {
	return b.with(WithLedger(l, optFns...))
}

// EmbedConcurrency bounds concurrent embedding calls.
func (b Builder) EmbedConcurrency(n int) Builder { return b.with(WithEmbedConcurrency(n)) }

// EmbedRateLimit paces embedding calls.
func (b Builder) EmbedRateLimit(r rate.Limit, burst int) Builder {
	return b.with(WithEmbedRateLimit(r, burst))
}

// Build creates the DB.
func (b Builder) Build() (*DB, error) {
	indexOpts := func(o *IndexOptions) {
		o.M = b.m
		o.EFConstruction = b.efConstruction
		o.EFSearch = b.efSearch
		o.Heuristic = b.heuristic
		o.RandomSeed = b.randomSeed
	}

	opts := append([]Option{WithIndexOptions(indexOpts)}, b.opts...)

	return New(opts...)
}

// MustBuild creates the DB, panicking on error.
func (b Builder) MustBuild() *DB {
	db, err := b.Build()
	if err != nil {
		panic(err)
	}

	return db
}
