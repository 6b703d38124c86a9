package vecdb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/vecdb/blobstore"
	"github.com/hupe1980/vecdb/ingest"
)

// Document returns the raw bytes archived for an ingested document. key is
// the IngestResult.ArchiveKey reported by IngestDocument.
func (db *DB) Document(ctx context.Context, key string) ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}

	if db.archive == nil {
		return nil, fmt.Errorf("%w: no blob store configured", ErrNotFound)
	}

	if !strings.HasPrefix(key, ingest.ArchivePrefix) {
		return nil, fmt.Errorf("%w: %q is not a document key", ErrInvalidArgument, key)
	}

	blob, err := db.archive.Open(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: document %q", ErrNotFound, key)
		}

		return nil, err
	}
	defer blob.Close()

	data, err := blobstore.ReadBlob(ctx, blob)
	if err != nil {
		return nil, err
	}

	// data may alias a mapping released by Close.
	return slices.Clone(data), nil
}

// purgeDocuments removes the archived documents of a deleted collection.
// Failures are logged; the collection is gone either way.
func (db *DB) purgeDocuments(ctx context.Context, collectionID string) {
	if db.archive == nil {
		return
	}

	keys, err := db.archive.List(ctx, ingest.CollectionArchivePrefix(collectionID))
	if err != nil {
		db.logger.WarnContext(ctx, "listing archived documents failed", "collection_id", collectionID, "error", err)
		return
	}

	removed := 0

	for _, key := range keys {
		if err := db.archive.Delete(ctx, key); err != nil {
			db.logger.WarnContext(ctx, "deleting archived document failed", "collection_id", collectionID, "key", key, "error", err)
			continue
		}

		removed++
	}

	if removed > 0 {
		db.logger.DebugContext(ctx, "archived documents deleted", "collection_id", collectionID, "count", removed)
	}
}
