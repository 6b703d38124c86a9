package vecdb

import (
	"context"
	"time"

	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/ingest"
	"github.com/hupe1980/vecdb/metadata"
)

type (
	// Document is a document whose text has already been extracted.
	Document = ingest.Document
	// IngestResult reports the outcome of IngestDocument.
	IngestResult = ingest.Result
)

// IngestOptions tunes a single ingestion.
type IngestOptions struct {
	// Embed selects whether chunks are embedded and stored. Defaults to true.
	Embed bool
	// Metadata is attached to every stored chunk.
	Metadata metadata.Document
}

// IngestDocument splits doc into chunks with strategy and, unless disabled,
// embeds every chunk and stores it in the collection. An empty
// collectionID only chunks the document.
//
// Chunks whose embedding fails are skipped and reported in
// IngestResult.Failures; the call itself only fails on an invalid
// strategy, an unknown collection, a missing embedder or an insert error.
// Once started, ingestion runs to completion even if ctx is cancelled.
func (db *DB) IngestDocument(ctx context.Context, collectionID string, doc Document, strategy chunk.Strategy, optFns ...func(o *IngestOptions)) (IngestResult, error) {
	if db.closed.Load() {
		return IngestResult{}, ErrClosed
	}

	opts := IngestOptions{Embed: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()

	res, err := db.pipeline.Ingest(ctx, ingest.Request{
		CollectionID: collectionID,
		Document:     doc,
		Strategy:     strategy,
		Embed:        opts.Embed && collectionID != "",
		Metadata:     opts.Metadata,
	})
	err = translateError(err)

	db.metrics.RecordIngest(res.ChunkCount, res.EmbeddedCount, time.Since(start), err)
	db.logger.LogIngest(ctx, collectionID, res.DocumentID, res.ChunkCount, res.EmbeddedCount, err)

	if len(res.RecordIDs) > 0 {
		db.notifyUpdate(collectionID)
	}

	return res, err
}
