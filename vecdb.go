package vecdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecdb/blobstore"
	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/ingest"
	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/internal/resource"
	"github.com/hupe1980/vecdb/ledger"
	"github.com/hupe1980/vecdb/metadata"
)

type (
	// Collection is a snapshot of a collection's descriptive state.
	Collection = registry.Collection
	// Record is a stored vector with its metadata.
	Record = registry.Record
	// Item is a vector with optional metadata for InsertBatch.
	Item = registry.Item
	// Page is one page of ListRecords.
	Page = registry.Page
	// CollectionStats describes the index and metadata state of a collection.
	CollectionStats = registry.Stats
)

// DB is an in-memory vector database holding any number of collections.
// All methods are safe for concurrent use.
type DB struct {
	reg      *registry.Registry
	pipeline *ingest.Pipeline
	throttle *resource.Controller
	syncer   *ledger.Syncer  // nil without a ledger
	archive  blobstore.Store // nil without a blob store
	embedder embed.Embedder

	metrics MetricsCollector
	logger  *Logger

	// dropped remembers collections deleted locally so that rehydration
	// does not bring them back before the ledger has caught up.
	dropped sync.Map

	closed atomic.Bool
}

// New creates an empty DB.
func New(optFns ...Option) (*DB, error) {
	opts := applyOptions(optFns)

	slogger := opts.logger.Logger

	reg := registry.New(append([]func(*registry.Options){func(o *registry.Options) {
		o.OverSampleFactor = opts.overSampleFactor
		o.Logger = slogger
	}}, opts.indexOptions...)...)

	throttle := resource.NewController(resource.Config{
		MaxConcurrent:      int64(opts.embedConcurrency),
		RequestsPerSecond:  float64(opts.embedRate),
		Burst:              opts.embedBurst,
		MemoryLimitBytes:   opts.embedMemoryLimit,
		IOLimitBytesPerSec: opts.archiveRate,
	})

	pipeline, err := ingest.New(reg, func(o *ingest.Options) {
		o.Embedder = opts.embedder
		o.Concurrency = opts.embedConcurrency
		o.BatchSize = opts.embedBatchSize
		o.CacheSize = opts.cacheSize
		o.Throttle = throttle
		o.Archive = opts.blobStore
		o.Logger = slogger
	})
	if err != nil {
		return nil, err
	}

	db := &DB{
		reg:      reg,
		pipeline: pipeline,
		throttle: throttle,
		archive:  opts.blobStore,
		embedder: opts.embedder,
		metrics:  opts.metricsCollector,
		logger:   opts.logger,
	}

	if opts.ledger != nil {
		db.syncer = ledger.NewSyncer(opts.ledger, append([]func(*ledger.SyncOptions){func(o *ledger.SyncOptions) {
			o.Logger = slogger
		}}, opts.syncOptions...)...)
	}

	return db, nil
}

// CollectionOptions describes a new collection.
type CollectionOptions struct {
	// Dimension of the collection's vectors. When zero, the dimension is
	// taken from the embedder, probing it with one call if necessary.
	Dimension   int
	Description string
	IsPublic    bool
	Metric      distance.Metric

	// AllowReservedName permits the name "default".
	AllowReservedName bool
}

// CollectionOption configures CreateCollection.
type CollectionOption func(*CollectionOptions)

// WithDimension sets the vector dimension of a new collection.
func WithDimension(dim int) CollectionOption {
	return func(o *CollectionOptions) { o.Dimension = dim }
}

// WithDescription sets the description of a new collection.
func WithDescription(desc string) CollectionOption {
	return func(o *CollectionOptions) { o.Description = desc }
}

// WithPublic marks a new collection as public.
func WithPublic(public bool) CollectionOption {
	return func(o *CollectionOptions) { o.IsPublic = public }
}

// WithMetric sets the similarity metric of a new collection. Cosine is the default.
func WithMetric(m distance.Metric) CollectionOption {
	return func(o *CollectionOptions) { o.Metric = m }
}

// WithReservedName allows creating a collection named "default".
func WithReservedName() CollectionOption {
	return func(o *CollectionOptions) { o.AllowReservedName = true }
}

// CreateCollection creates an empty collection. The name need not be unique.
func (db *DB) CreateCollection(ctx context.Context, name string, optFns ...CollectionOption) (Collection, error) {
	if db.closed.Load() {
		return Collection{}, ErrClosed
	}

	opts := CollectionOptions{Metric: distance.MetricCosine}
	for _, fn := range optFns {
		fn(&opts)
	}

	c, err := db.createCollection(ctx, name, opts)
	db.logger.LogCollection(ctx, "create", c.ID, err)

	if err != nil {
		return Collection{}, err
	}

	db.notifyCreate(c)

	return c, nil
}

func (db *DB) createCollection(ctx context.Context, name string, opts CollectionOptions) (Collection, error) {
	// Name errors win over embedder errors.
	if err := registry.ValidateName(name, opts.AllowReservedName); err != nil {
		return Collection{}, translateError(err)
	}

	dim := opts.Dimension
	if dim == 0 {
		var err error
		if dim, err = db.probeDimension(ctx); err != nil {
			return Collection{}, err
		}
	}

	c, err := db.reg.Create(registry.CreateParams{
		Name:              name,
		Description:       opts.Description,
		Dimension:         dim,
		Metric:            opts.Metric,
		IsPublic:          opts.IsPublic,
		AllowReservedName: opts.AllowReservedName,
	})

	return c, translateError(err)
}

// probeDimension asks the embedder for its dimension, embedding a short
// text when the embedder does not know it up front.
func (db *DB) probeDimension(ctx context.Context) (int, error) {
	if db.embedder == nil {
		return 0, &ErrInvalidDimension{Dimension: 0}
	}

	if dim := db.embedder.Dimension(); dim > 0 {
		return dim, nil
	}

	vec, err := db.embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}

	if len(vec) == 0 {
		return 0, fmt.Errorf("%w: empty embedding", ErrEmbeddingFailure)
	}

	return len(vec), nil
}

// GetCollection returns a snapshot of a local collection.
func (db *DB) GetCollection(_ context.Context, id string) (Collection, error) {
	if db.closed.Load() {
		return Collection{}, ErrClosed
	}

	c, err := db.reg.Get(id)

	return c, translateError(err)
}

// FindCollection returns the oldest collection with the given name.
func (db *DB) FindCollection(_ context.Context, name string) (Collection, error) {
	if db.closed.Load() {
		return Collection{}, ErrClosed
	}

	c, err := db.reg.FindByName(name)

	return c, translateError(err)
}

// ListCollections returns all collections, oldest first. When a ledger is
// configured, collections it knows that are missing locally are first
// restored as empty shadow collections. Ledger failures are logged and
// the local collections are returned regardless.
func (db *DB) ListCollections(ctx context.Context) ([]Collection, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}

	if db.syncer != nil {
		n, err := db.syncer.Rehydrate(ctx, rehydrateTarget{db})
		if err != nil {
			db.logger.LogRehydrate(ctx, n, err)
		}
	}

	return db.reg.List(), nil
}

// CollectionStats returns index and metadata statistics for a collection.
func (db *DB) CollectionStats(_ context.Context, id string) (CollectionStats, error) {
	if db.closed.Load() {
		return CollectionStats{}, ErrClosed
	}

	s, err := db.reg.Stats(id)

	return s, translateError(err)
}

// DeleteCollection removes a collection with all its records. It returns
// false if the collection does not exist.
func (db *DB) DeleteCollection(ctx context.Context, id string) (bool, error) {
	if db.closed.Load() {
		return false, ErrClosed
	}

	if !db.reg.DeleteCollection(id) {
		return false, nil
	}

	db.dropped.Store(id, struct{}{})
	db.logger.LogCollection(ctx, "delete", id, nil)
	db.purgeDocuments(ctx, id)

	if db.syncer != nil {
		db.syncer.NotifyDelete(id)
	}

	return true, nil
}

// Insert stores one vector and returns its record.
func (db *DB) Insert(ctx context.Context, collectionID string, vector []float32, meta metadata.Document) (Record, error) {
	if db.closed.Load() {
		return Record{}, ErrClosed
	}

	start := time.Now()

	rec, err := db.reg.Insert(ctx, collectionID, vector, meta)
	err = translateError(err)

	db.metrics.RecordInsert(time.Since(start), err)
	db.logger.LogInsert(ctx, collectionID, 1, len(vector), err)

	if err != nil {
		return Record{}, err
	}

	db.notifyUpdate(collectionID)

	return rec, nil
}

// InsertBatch stores several vectors. Every vector is validated before any
// is stored, so a dimension mismatch stores nothing.
func (db *DB) InsertBatch(ctx context.Context, collectionID string, items []Item) ([]Record, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()

	recs, err := db.reg.InsertBatch(ctx, collectionID, items)
	err = translateError(err)

	db.metrics.RecordBatchInsert(len(items), len(items)-len(recs), time.Since(start))

	var dim int
	if len(items) > 0 {
		dim = len(items[0].Vector)
	}

	db.logger.LogInsert(ctx, collectionID, len(items), dim, err)

	if len(recs) > 0 {
		db.notifyUpdate(collectionID)
	}

	return recs, err
}

// GetRecord returns a live record.
func (db *DB) GetRecord(_ context.Context, collectionID, recordID string) (Record, error) {
	if db.closed.Load() {
		return Record{}, ErrClosed
	}

	rec, err := db.reg.GetRecord(collectionID, recordID)

	return rec, translateError(err)
}

// DeleteRecord tombstones a record. It returns false if the collection or
// record does not exist.
func (db *DB) DeleteRecord(ctx context.Context, collectionID, recordID string) (bool, error) {
	if db.closed.Load() {
		return false, ErrClosed
	}

	start := time.Now()

	deleted := db.reg.DeleteRecord(collectionID, recordID)

	db.metrics.RecordDelete(time.Since(start), deleted)
	db.logger.LogDelete(ctx, collectionID, recordID, deleted)

	if deleted {
		db.notifyUpdate(collectionID)
	}

	return deleted, nil
}

// ListRecords returns live records in insertion order.
func (db *DB) ListRecords(_ context.Context, collectionID string, limit, offset int) (Page, error) {
	if db.closed.Load() {
		return Page{}, ErrClosed
	}

	page, err := db.reg.ListRecords(collectionID, limit, offset)

	return page, translateError(err)
}

// IngestStats returns counters of the ingestion pipeline.
func (db *DB) IngestStats() ingest.Stats {
	return db.pipeline.Stats()
}

// SyncStats returns counters of the ledger delivery queue.
func (db *DB) SyncStats() ledger.SyncStats {
	if db.syncer == nil {
		return ledger.SyncStats{}
	}

	return db.syncer.Stats()
}
