package vecdb

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hupe1980/vecdb/blobstore"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/ledger"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	embedder         embed.Embedder
	ledger           ledger.Ledger
	syncOptions      []func(*ledger.SyncOptions)
	blobStore        blobstore.Store
	indexOptions     []func(*registry.Options)
	overSampleFactor int
	embedConcurrency int
	embedBatchSize   int
	embedRate        rate.Limit
	embedBurst       int
	embedMemoryLimit int64
	archiveRate      int64
	cacheSize        int
}

// Option configures a DB.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecdb.BasicMetricsCollector{}
//	db, _ := vecdb.New(vecdb.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vecdb.NewJSONLogger(slog.LevelInfo)
//	db, _ := vecdb.New(vecdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithEmbedder sets the embedding provider used by IngestDocument and by
// CreateCollection when no dimension is given.
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) {
		o.embedder = e
	}
}

// WithLedger mirrors collection metadata into l. Ledger writes are queued
// and delivered in the background; they never fail local operations.
func WithLedger(l ledger.Ledger, optFns ...func(*ledger.SyncOptions)) Option {
	return func(o *options) {
		o.ledger = l
		o.syncOptions = append(o.syncOptions, optFns...)
	}
}

// WithLedgerSyncOptions tunes the background ledger delivery.
func WithLedgerSyncOptions(optFns ...func(*ledger.SyncOptions)) Option {
	return func(o *options) {
		o.syncOptions = append(o.syncOptions, optFns...)
	}
}

// WithBlobStore archives the raw bytes of ingested documents in s.
func WithBlobStore(s blobstore.Store) Option {
	return func(o *options) {
		o.blobStore = s
	}
}

// IndexOptions holds the HNSW parameters applied to every new collection.
type IndexOptions = registry.Options

// WithIndexOptions tunes the HNSW index of every new collection.
//
// Example:
//
//	db, _ := vecdb.New(vecdb.WithIndexOptions(func(o *vecdb.IndexOptions) {
//	    o.M = 32
//	    o.EFSearch = 128
//	}))
func WithIndexOptions(optFns ...func(*IndexOptions)) Option {
	return func(o *options) {
		o.indexOptions = append(o.indexOptions, optFns...)
	}
}

// WithOverSampleFactor sets how many candidates per requested result are
// fetched from the index before tombstones and filters are applied.
func WithOverSampleFactor(f int) Option {
	return func(o *options) {
		o.overSampleFactor = f
	}
}

// WithEmbedConcurrency bounds the number of embedding calls in flight.
func WithEmbedConcurrency(n int) Option {
	return func(o *options) {
		o.embedConcurrency = n
	}
}

// WithEmbedBatchSize sets the number of chunks per embedding call.
func WithEmbedBatchSize(n int) Option {
	return func(o *options) {
		o.embedBatchSize = n
	}
}

// WithEmbedRateLimit paces embedding calls to r per second with the given burst.
func WithEmbedRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.embedRate = r
		o.embedBurst = burst
	}
}

// WithEmbedMemoryLimit bounds the bytes of chunk text held by in-flight
// embedding calls.
func WithEmbedMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.embedMemoryLimit = bytes
	}
}

// WithArchiveRateLimit caps archive uploads at bytesPerSec.
func WithArchiveRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.archiveRate = bytesPerSec
	}
}

// WithEmbeddingCacheSize sets the number of cached chunk embeddings.
// Zero or negative disables the cache.
func WithEmbeddingCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		overSampleFactor: registry.DefaultOverSampleFactor,
		embedConcurrency: 4,
		cacheSize:        4096,
	}

	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}

	if o.logger == nil {
		o.logger = NoopLogger()
	}

	return o
}
