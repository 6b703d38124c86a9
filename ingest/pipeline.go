package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/metadata"
)

// Sink stores embedded chunks. *registry.Registry implements it.
type Sink interface {
	Get(collectionID string) (registry.Collection, error)
	InsertBatch(ctx context.Context, collectionID string, items []registry.Item) ([]registry.Record, error)
}

// Stats counts pipeline activity since creation.
type Stats struct {
	Documents   int64
	Chunks      int64
	Embedded    int64
	Failed      int64
	CacheHits   int64
	CacheMisses int64
	Archived    int64
}

// Pipeline chunks, embeds and stores documents. It is safe for concurrent use.
type Pipeline struct {
	sink   Sink
	opts   Options
	cache  *lru.Cache[uint64, []float32] // nil when disabled
	logger *slog.Logger

	documents   atomic.Int64
	chunks      atomic.Int64
	embedded    atomic.Int64
	failed      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	archived    atomic.Int64
}

// New creates a pipeline that inserts into sink.
func New(sink Sink, optFns ...func(o *Options)) (*Pipeline, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Pipeline{
		sink:   sink,
		opts:   opts,
		logger: logger,
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[uint64, []float32](opts.CacheSize)
		if err != nil {
			return nil, err
		}

		p.cache = cache
	}

	return p, nil
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Documents:   p.documents.Load(),
		Chunks:      p.chunks.Load(),
		Embedded:    p.embedded.Load(),
		Failed:      p.failed.Load(),
		CacheHits:   p.cacheHits.Load(),
		CacheMisses: p.cacheMisses.Load(),
		Archived:    p.archived.Load(),
	}
}

// Ingest processes one document.
//
// Validation errors and unknown collections fail the call before any work
// is done. After that the call runs to completion even if ctx is canceled.
// Chunks that fail to embed are listed in Result.Failures; the returned
// error is only set when storing the embedded chunks fails.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (Result, error) {
	if err := req.Strategy.Validate(); err != nil {
		return Result{}, err
	}

	var dim int

	if req.Embed {
		if p.opts.Embedder == nil {
			return Result{}, ErrNoEmbedder
		}

		c, err := p.sink.Get(req.CollectionID)
		if err != nil {
			return Result{}, err
		}

		dim = c.Dimension
	}

	doc := req.Document
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	ctx = context.WithoutCancel(ctx)

	res := Result{
		DocumentID: doc.ID,
		Failures:   make(map[int]string),
	}

	if p.opts.Archive != nil && len(doc.Raw) > 0 && req.CollectionID != "" {
		key, err := p.archive(ctx, req.CollectionID, doc)
		if err != nil {
			p.logger.Warn("archive failed", "collection_id", req.CollectionID, "document_id", doc.ID, "error", err)
			res.ArchiveError = err.Error()
		} else {
			res.ArchiveKey = key
		}
	}

	text := doc.Text
	if text == "" && isText(doc) {
		text = string(doc.Raw)
	}

	chunks, err := chunk.Split(text, req.Strategy)
	if err != nil {
		return Result{}, err
	}

	base := documentMetadata(req.Metadata, doc)
	for i := range chunks {
		chunks[i].Metadata = base.Merge(chunks[i].Metadata)
	}

	res.Chunks = chunks
	res.ChunkCount = len(chunks)

	p.documents.Add(1)
	p.chunks.Add(int64(len(chunks)))

	if !req.Embed || len(chunks) == 0 {
		return res, nil
	}

	vectors, errs := p.embed(ctx, chunks, dim)

	items := make([]registry.Item, 0, len(chunks))

	for i := range chunks {
		c := &chunks[i]

		if errs[i] != nil {
			reason := errs[i].Error()
			res.Failures[c.Index] = reason
			c.Metadata[MetaEmbeddingError] = metadata.String(reason)

			continue
		}

		c.Embedding = vectors[i]

		meta := c.Metadata.Clone()
		meta[MetaText] = metadata.String(c.Text)
		meta[MetaChunkIndex] = metadata.Int(int64(c.Index))
		meta[MetaStart] = metadata.Int(int64(c.Start))
		meta[MetaEnd] = metadata.Int(int64(c.End))

		items = append(items, registry.Item{Vector: vectors[i], Metadata: meta})
	}

	p.failed.Add(int64(len(res.Failures)))

	if len(res.Failures) > 0 {
		p.logger.Warn("chunks failed to embed", "collection_id", req.CollectionID, "document_id", doc.ID, "failed", len(res.Failures), "chunks", len(chunks))
	}

	if len(items) == 0 {
		return res, nil
	}

	records, err := p.sink.InsertBatch(ctx, req.CollectionID, items)
	if err != nil {
		return res, err
	}

	res.EmbeddedCount = len(records)
	res.RecordIDs = make([]string, len(records))

	for i, rec := range records {
		res.RecordIDs[i] = rec.ID
	}

	p.embedded.Add(int64(len(records)))

	p.logger.Debug("document ingested", "collection_id", req.CollectionID, "document_id", doc.ID, "chunks", len(chunks), "embedded", len(records))

	return res, nil
}

// ArchivePrefix is the blob name prefix under which documents are archived.
const ArchivePrefix = "documents/"

// ArchiveKey returns the blob name used for a document's raw bytes.
func ArchiveKey(collectionID, documentID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		name = "document"
	}

	return path.Join(ArchivePrefix, collectionID, documentID, name)
}

// CollectionArchivePrefix returns the prefix of every archive key of a collection.
func CollectionArchivePrefix(collectionID string) string {
	return ArchivePrefix + collectionID + "/"
}

func (p *Pipeline) archive(ctx context.Context, collectionID string, doc Document) (string, error) {
	key := ArchiveKey(collectionID, doc.ID, doc.Filename)

	if err := p.opts.Throttle.AcquireIO(ctx, len(doc.Raw)); err != nil {
		return "", err
	}

	if err := p.opts.Archive.Put(ctx, key, doc.Raw); err != nil {
		return "", err
	}

	p.archived.Add(1)

	return key, nil
}

// embed returns one vector or one error per chunk. Cached texts are served
// without calling the embedder; the rest are embedded in batches.
func (p *Pipeline) embed(ctx context.Context, chunks []chunk.Chunk, dim int) ([][]float32, []error) {
	vectors := make([][]float32, len(chunks))
	errs := make([]error, len(chunks))

	var misses []int

	for i, c := range chunks {
		if v, ok := p.cacheGet(c.Text, dim); ok {
			vectors[i] = v
			continue
		}

		misses = append(misses, i)
	}

	if p.cache != nil {
		p.cacheMisses.Add(int64(len(misses)))
	}

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)

	for batch := range slices.Chunk(misses, p.opts.BatchSize) {
		g.Go(func() error {
			p.embedBatch(ctx, chunks, batch, dim, vectors, errs)
			return nil
		})
	}

	_ = g.Wait()

	return vectors, errs
}

// embedBatch fills vectors and errs for the chunk indexes in batch. Each
// goroutine owns distinct indexes. A failed batch is retried chunk by chunk
// so a single bad chunk does not fail its neighbors.
func (p *Pipeline) embedBatch(ctx context.Context, chunks []chunk.Chunk, batch []int, dim int, vectors [][]float32, errs []error) {
	texts := make([]string, len(batch))

	var size int64

	for j, idx := range batch {
		texts[j] = chunks[idx].Text
		size += int64(len(texts[j]))
	}

	throttle := p.opts.Throttle

	if err := throttle.AcquireMemory(ctx, size); err != nil {
		for _, idx := range batch {
			errs[idx] = err
		}

		return
	}
	defer throttle.ReleaseMemory(size)

	var vecs [][]float32

	err := p.call(ctx, func() error {
		var err error
		vecs, err = p.opts.Embedder.EmbedBatch(ctx, texts)

		return err
	})
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(texts))
	}

	if err != nil && len(batch) > 1 {
		p.logger.Debug("embedding batch failed, retrying per chunk", "size", len(batch), "error", err)

		for _, idx := range batch {
			vectors[idx], errs[idx] = p.embedOne(ctx, chunks[idx].Text, dim)
		}

		return
	}

	for j, idx := range batch {
		if err != nil {
			errs[idx] = fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
			continue
		}

		vectors[idx], errs[idx] = p.accept(texts[j], vecs[j], dim)
	}
}

func (p *Pipeline) embedOne(ctx context.Context, text string, dim int) ([]float32, error) {
	var vec []float32

	err := p.call(ctx, func() error {
		var err error
		vec, err = p.opts.Embedder.Embed(ctx, text)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}

	return p.accept(text, vec, dim)
}

// call runs fn while holding a throttle slot.
func (p *Pipeline) call(ctx context.Context, fn func() error) error {
	release, err := p.opts.Throttle.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

// accept checks the vector dimension and caches the vector.
func (p *Pipeline) accept(text string, vec []float32, dim int) ([]float32, error) {
	if len(vec) != dim {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, &embed.ErrUnexpectedDimension{Expected: dim, Actual: len(vec)})
	}

	if p.cache != nil {
		p.cache.Add(xxhash.Sum64String(text), slices.Clone(vec))
	}

	return vec, nil
}

func (p *Pipeline) cacheGet(text string, dim int) ([]float32, bool) {
	if p.cache == nil {
		return nil, false
	}

	v, ok := p.cache.Get(xxhash.Sum64String(text))
	if !ok || len(v) != dim {
		return nil, false
	}

	p.cacheHits.Add(1)

	return slices.Clone(v), true
}

func documentMetadata(extra metadata.Document, doc Document) metadata.Document {
	meta := extra.Clone()
	if meta == nil {
		meta = make(metadata.Document, 3)
	}

	meta[MetaDocumentID] = metadata.String(doc.ID)

	if doc.Filename != "" {
		meta[MetaFilename] = metadata.String(doc.Filename)
	}

	if doc.MimeType != "" {
		meta[MetaMimeType] = metadata.String(doc.MimeType)
	}

	return meta
}

// isText reports whether the raw bytes can be used as document text.
func isText(doc Document) bool {
	if len(doc.Raw) == 0 || !utf8.Valid(doc.Raw) {
		return false
	}

	if doc.MimeType == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(doc.MimeType)
	if err != nil {
		return false
	}

	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/json" || mediaType == "application/xml"
}
