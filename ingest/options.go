package ingest

import (
	"log/slog"

	"github.com/hupe1980/vecdb/blobstore"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/internal/resource"
)

const (
	DefaultConcurrency = 4
	DefaultBatchSize   = 16
	DefaultCacheSize   = 4096
)

// Options configures a Pipeline.
type Options struct {
	Embedder embed.Embedder

	// Concurrency bounds the number of embedding batches in flight.
	Concurrency int

	// BatchSize is the number of chunks sent per EmbedBatch call.
	BatchSize int

	// CacheSize is the number of embeddings kept in the LRU cache.
	// Negative disables the cache.
	CacheSize int

	// Throttle paces embedding calls and archive uploads. Optional.
	Throttle *resource.Controller

	// Archive receives the raw document bytes. Optional.
	Archive blobstore.Store

	Logger *slog.Logger
}

// DefaultOptions contains the default options for a Pipeline.
var DefaultOptions = Options{
	Concurrency: DefaultConcurrency,
	BatchSize:   DefaultBatchSize,
	CacheSize:   DefaultCacheSize,
}
