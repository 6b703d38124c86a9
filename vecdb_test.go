package vecdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecdb/blobstore"
	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/ingest"
	"github.com/hupe1980/vecdb/ledger"
	"github.com/hupe1980/vecdb/metadata"
)

func newTestDB(t *testing.T, optFns ...Option) *DB {
	t.Helper()

	seeded := WithIndexOptions(func(o *IndexOptions) {
		seed := int64(42)
		o.RandomSeed = &seed
	})

	db, err := New(append([]Option{seeded}, optFns...)...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close(context.Background()) })

	return db
}

func TestDB(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "scenario", WithDimension(3))
		require.NoError(t, err)

		id1, err := db.Insert(ctx, c.ID, []float32{1, 0, 0}, nil)
		require.NoError(t, err)
		_, err = db.Insert(ctx, c.ID, []float32{0, 1, 0}, nil)
		require.NoError(t, err)
		id3, err := db.Insert(ctx, c.ID, []float32{0.9, 0.1, 0}, nil)
		require.NoError(t, err)

		results, err := db.Search(ctx, c.ID, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, id1.ID, results[0].RecordID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
		assert.Equal(t, id3.ID, results[1].RecordID)
		assert.InDelta(t, 0.994, results[1].Score, 1e-3)
	})

	t.Run("ReservedName", func(t *testing.T) {
		db := newTestDB(t)

		for _, name := range []string{"default", "Default", "DEFAULT", "", "   "} {
			_, err := db.CreateCollection(ctx, name, WithDimension(3))
			require.ErrorIs(t, err, ErrInvalidName, name)
			assert.Equal(t, KindInvalidName, KindOf(err))
		}

		c, err := db.CreateCollection(ctx, "Default", WithDimension(3), WithReservedName())
		require.NoError(t, err)
		assert.Equal(t, "Default", c.Name)
	})

	t.Run("DuplicateNames", func(t *testing.T) {
		db := newTestDB(t)

		a, err := db.CreateCollection(ctx, "docs", WithDimension(2))
		require.NoError(t, err)
		b, err := db.CreateCollection(ctx, "docs", WithDimension(2))
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		found, err := db.FindCollection(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.CreateCollection(ctx, "nodim")
		var id *ErrInvalidDimension
		require.ErrorAs(t, err, &id)
		assert.Equal(t, KindInvalidArgument, KindOf(err))

		_, err = db.CreateCollection(ctx, "negative", WithDimension(-1))
		require.ErrorAs(t, err, &id)
		assert.Equal(t, -1, id.Dimension)
	})

	t.Run("DimensionFromEmbedder", func(t *testing.T) {
		db := newTestDB(t, WithEmbedder(embed.NewHash(64)))

		c, err := db.CreateCollection(ctx, "docs", WithDescription("hashed"), WithPublic(true))
		require.NoError(t, err)
		assert.Equal(t, 64, c.Dimension)
		assert.Equal(t, "hashed", c.Description)
		assert.True(t, c.IsPublic)
	})

	t.Run("DimensionProbe", func(t *testing.T) {
		db := newTestDB(t, WithEmbedder(unknownDimEmbedder{embed.NewHash(16)}))

		c, err := db.CreateCollection(ctx, "probed")
		require.NoError(t, err)
		assert.Equal(t, 16, c.Dimension)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "dims", WithDimension(3))
		require.NoError(t, err)

		_, err = db.Insert(ctx, c.ID, []float32{1, 2}, nil)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
		assert.Equal(t, KindDimensionMismatch, KindOf(err))

		_, err = db.Search(ctx, c.ID, []float32{1, 2, 3, 4}, 1)
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 4, dm.Actual)

		_, err = db.InsertBatch(ctx, c.ID, []Item{
			{Vector: []float32{1, 0, 0}},
			{Vector: []float32{1, 0}},
		})
		require.ErrorAs(t, err, &dm)

		stats, err := db.CollectionStats(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Collection.LiveCount)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "roundtrip", WithDimension(4))
		require.NoError(t, err)

		vec := []float32{0.25, -1.5, 3, 0}
		meta := metadata.Document{
			"title": metadata.String("hello"),
			"year":  metadata.Int(2024),
			"tags":  metadata.Array([]metadata.Value{metadata.String("a"), metadata.String("b")}),
		}

		rec, err := db.Insert(ctx, c.ID, vec, meta)
		require.NoError(t, err)

		// Mutating the inputs must not leak into the stored record.
		vec[0] = 99
		meta["title"] = metadata.String("changed")

		got, err := db.GetRecord(ctx, c.ID, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, -1.5, 3, 0}, got.Vector)
		assert.Equal(t, "hello", mustString(t, got.Metadata["title"]))
		assert.True(t, got.Metadata.Equal(rec.Metadata))

		results, err := db.Search(ctx, c.ID, []float32{0.25, -1.5, 3, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, rec.ID, results[0].RecordID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	})

	t.Run("SearchBounds", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "bounds", WithDimension(2))
		require.NoError(t, err)

		_, err = db.Search(ctx, c.ID, []float32{1, 0}, 0)
		require.ErrorIs(t, err, ErrInvalidK)
		assert.Equal(t, KindInvalidArgument, KindOf(err))

		results, err := db.Search(ctx, c.ID, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)

		_, err = db.InsertBatch(ctx, c.ID, []Item{
			{Vector: []float32{1, 0}},
			{Vector: []float32{0, 1}},
			{Vector: []float32{1, 1}},
		})
		require.NoError(t, err)

		results, err = db.Search(ctx, c.ID, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("Tombstone", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "tomb", WithDimension(2))
		require.NoError(t, err)

		a, err := db.Insert(ctx, c.ID, []float32{1, 0}, nil)
		require.NoError(t, err)
		b, err := db.Insert(ctx, c.ID, []float32{0.9, 0.1}, nil)
		require.NoError(t, err)

		deleted, err := db.DeleteRecord(ctx, c.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = db.DeleteRecord(ctx, c.ID, a.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		for range 5 {
			results, err := db.Search(ctx, c.ID, []float32{1, 0}, 2)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, b.ID, results[0].RecordID)
		}

		_, err = db.GetRecord(ctx, c.ID, a.ID)
		require.ErrorIs(t, err, ErrNotFound)

		got, err := db.GetCollection(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.RecordCount)
	})

	t.Run("MetadataFilter", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "filter", WithDimension(2))
		require.NoError(t, err)

		en, err := db.Insert(ctx, c.ID, []float32{0.8, 0.2}, metadata.Document{"lang": metadata.String("en")})
		require.NoError(t, err)
		_, err = db.Insert(ctx, c.ID, []float32{1, 0}, metadata.Document{"lang": metadata.String("de")})
		require.NoError(t, err)

		results, err := db.Search(ctx, c.ID, []float32{1, 0}, 5, func(o *SearchOptions) {
			o.Filter = metadata.NewFilterSet(metadata.Eq("lang", metadata.String("en")))
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, en.ID, results[0].RecordID)

		first, err := db.Query(c.ID, []float32{1, 0}).
			Where(metadata.Eq("lang", metadata.String("en"))).
			First(ctx)
		require.NoError(t, err)
		assert.Equal(t, en.ID, first.RecordID)

		exists, err := db.Query(c.ID, []float32{1, 0}).
			Where(metadata.Eq("lang", metadata.String("fr"))).
			Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ListRecords", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "paging", WithDimension(2))
		require.NoError(t, err)

		var ids []string
		for i := range 5 {
			rec, err := db.Insert(ctx, c.ID, []float32{float32(i + 1), 1}, nil)
			require.NoError(t, err)
			ids = append(ids, rec.ID)
		}

		page, err := db.ListRecords(ctx, c.ID, 2, 0)
		require.NoError(t, err)
		require.Len(t, page.Records, 2)
		assert.True(t, page.HasMore)
		assert.Equal(t, ids[0], page.Records[0].ID)

		page, err = db.ListRecords(ctx, c.ID, 2, 4)
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.False(t, page.HasMore)
		assert.Equal(t, ids[4], page.Records[0].ID)

		_, err = db.ListRecords(ctx, c.ID, -1, 0)
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})

	t.Run("DeleteCollection", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "gone", WithDimension(2))
		require.NoError(t, err)

		deleted, err := db.DeleteCollection(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = db.DeleteCollection(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = db.GetCollection(ctx, c.ID)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))

		_, err = db.Insert(ctx, c.ID, []float32{1, 0}, nil)
		require.ErrorIs(t, err, ErrNotFound)

		_, err = db.Search(ctx, c.ID, []float32{1, 0}, 1)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Closed", func(t *testing.T) {
		db, err := New()
		require.NoError(t, err)
		require.NoError(t, db.Close(ctx))
		require.NoError(t, db.Close(ctx))

		_, err = db.CreateCollection(ctx, "late", WithDimension(2))
		require.ErrorIs(t, err, ErrClosed)
		assert.Equal(t, KindClosed, KindOf(err))

		_, err = db.ListCollections(ctx)
		require.ErrorIs(t, err, ErrClosed)
	})

	t.Run("Metrics", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		db := newTestDB(t, WithMetricsCollector(metrics))

		c, err := db.CreateCollection(ctx, "metrics", WithDimension(2))
		require.NoError(t, err)

		_, err = db.Insert(ctx, c.ID, []float32{1, 0}, nil)
		require.NoError(t, err)
		_, err = db.Insert(ctx, c.ID, []float32{1}, nil)
		require.Error(t, err)
		_, err = db.Search(ctx, c.ID, []float32{1, 0}, 1)
		require.NoError(t, err)
		_, err = db.DeleteRecord(ctx, c.ID, "missing")
		require.NoError(t, err)

		stats := metrics.GetStats()
		assert.Equal(t, int64(2), stats.InsertCount)
		assert.Equal(t, int64(1), stats.InsertErrors)
		assert.Equal(t, int64(1), stats.SearchCount)
		assert.Equal(t, int64(1), stats.DeleteCount)
		assert.Equal(t, int64(1), stats.DeleteMisses)
	})
}

func TestIngestDocument(t *testing.T) {
	ctx := context.Background()
	text := "The cat sat on the mat. Dogs bark at night. Rockets fly to the moon. Fish swim in the sea."

	t.Run("EmbedAndSearch", func(t *testing.T) {
		db := newTestDB(t, WithEmbedder(embed.NewHash(128)))

		c, err := db.CreateCollection(ctx, "docs")
		require.NoError(t, err)

		res, err := db.IngestDocument(ctx, c.ID, Document{Filename: "animals.txt", Text: text},
			chunk.Strategy{Kind: chunk.KindSentence, Size: 30, Overlap: 0},
			func(o *IngestOptions) {
				o.Metadata = metadata.Document{"source": metadata.String("test")}
			})
		require.NoError(t, err)
		assert.Equal(t, 4, res.ChunkCount)
		assert.Equal(t, 4, res.EmbeddedCount)
		assert.Len(t, res.RecordIDs, 4)
		assert.Empty(t, res.Failures)

		query, err := embed.NewHash(128).Embed(ctx, "Rockets fly to the moon.")
		require.NoError(t, err)

		results, err := db.Search(ctx, c.ID, query, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, res.RecordIDs[2], results[0].RecordID)
		assert.Equal(t, "test", mustString(t, results[0].Metadata["source"]))
		assert.Equal(t, "animals.txt", mustString(t, results[0].Metadata[ingest.MetaFilename]))

		got, err := db.GetCollection(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.RecordCount)
		assert.Equal(t, int64(1), db.IngestStats().Documents)
	})

	t.Run("ChunksOnly", func(t *testing.T) {
		db := newTestDB(t)

		res, err := db.IngestDocument(ctx, "", Document{Text: text}, chunk.DefaultStrategy())
		require.NoError(t, err)
		assert.Equal(t, 1, res.ChunkCount)
		assert.Empty(t, res.RecordIDs)
		assert.NotEmpty(t, res.DocumentID)
	})

	t.Run("InvalidStrategy", func(t *testing.T) {
		db := newTestDB(t, WithEmbedder(embed.NewHash(8)))

		c, err := db.CreateCollection(ctx, "docs")
		require.NoError(t, err)

		_, err = db.IngestDocument(ctx, c.ID, Document{Text: text}, chunk.Strategy{Kind: chunk.KindFixed, Size: 100, Overlap: 150})
		require.ErrorIs(t, err, ErrInvalidStrategy)
		assert.Equal(t, KindInvalidStrategy, KindOf(err))
	})

	t.Run("NoEmbedder", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.CreateCollection(ctx, "docs", WithDimension(8))
		require.NoError(t, err)

		_, err = db.IngestDocument(ctx, c.ID, Document{Text: text}, chunk.DefaultStrategy())
		require.ErrorIs(t, err, ErrNoEmbedder)
		assert.Equal(t, KindEmbeddingFailure, KindOf(err))
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		db := newTestDB(t, WithEmbedder(embed.NewHash(8)))

		_, err := db.IngestDocument(ctx, "missing", Document{Text: text}, chunk.DefaultStrategy())
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLedgerSync(t *testing.T) {
	ctx := context.Background()

	fast := func(o *ledger.SyncOptions) {
		o.InitialBackoff = time.Millisecond
		o.MaxBackoff = 2 * time.Millisecond
	}

	t.Run("MirrorsCollections", func(t *testing.T) {
		l := ledger.NewMemory()

		db, err := New(WithLedger(l, fast))
		require.NoError(t, err)

		c, err := db.CreateCollection(ctx, "mirrored", WithDimension(2))
		require.NoError(t, err)
		_, err = db.Insert(ctx, c.ID, []float32{1, 0}, nil)
		require.NoError(t, err)
		_, err = db.Insert(ctx, c.ID, []float32{0, 1}, nil)
		require.NoError(t, err)

		gone, err := db.CreateCollection(ctx, "temporary", WithDimension(2))
		require.NoError(t, err)
		_, err = db.DeleteCollection(ctx, gone.ID)
		require.NoError(t, err)

		require.NoError(t, db.Close(ctx))

		info, err := l.GetCollection(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "mirrored", info.Name)
		assert.Equal(t, 2, info.Dimension)
		assert.Equal(t, 2, info.RecordCount)
		assert.NotEmpty(t, info.ContentHash)

		_, err = l.GetCollection(ctx, gone.ID)
		require.ErrorIs(t, err, ledger.ErrNotFound)

		assert.Equal(t, uint64(0), db.SyncStats().Dropped)
	})

	t.Run("Rehydrate", func(t *testing.T) {
		l := ledger.NewMemory()
		require.NoError(t, l.CreateCollection(ctx, ledger.CollectionInfo{
			ID:          "remote-1",
			Name:        "remote",
			Dimension:   3,
			Metric:      "cosine",
			RecordCount: 7,
			ContentHash: "00000000000000ff",
			Created:     time.Now(),
		}))

		db := newTestDB(t, WithLedger(l, fast))

		collections, err := db.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		assert.Equal(t, "remote-1", collections[0].ID)
		assert.Equal(t, 7, collections[0].RecordCount)
		assert.Equal(t, "00000000000000ff", collections[0].ContentHash)
		assert.True(t, collections[0].Shadow)

		n, err := db.Rehydrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		rec, err := db.Insert(ctx, "remote-1", []float32{1, 0, 0}, nil)
		require.NoError(t, err)

		got, err := db.GetCollection(ctx, "remote-1")
		require.NoError(t, err)
		assert.Equal(t, 8, got.RecordCount)
		assert.NotEqual(t, "00000000000000ff", got.ContentHash)

		deleted, err := db.DeleteRecord(ctx, "remote-1", rec.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		got, err = db.GetCollection(ctx, "remote-1")
		require.NoError(t, err)
		assert.Equal(t, "00000000000000ff", got.ContentHash)
	})

	t.Run("DeletedIsNotRestored", func(t *testing.T) {
		l := ledger.NewMemory()
		require.NoError(t, l.CreateCollection(ctx, ledger.CollectionInfo{ID: "remote-2", Name: "remote", Dimension: 2}))

		db := newTestDB(t, WithLedger(l, fast))

		n, err := db.Rehydrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		deleted, err := db.DeleteCollection(ctx, "remote-2")
		require.NoError(t, err)
		require.True(t, deleted)

		collections, err := db.ListCollections(ctx)
		require.NoError(t, err)
		assert.Empty(t, collections)
	})

	t.Run("UnavailableLedger", func(t *testing.T) {
		db := newTestDB(t, WithLedger(brokenLedger{}, fast, func(o *ledger.SyncOptions) { o.MaxAttempts = 1 }))

		c, err := db.CreateCollection(ctx, "local", WithDimension(2))
		require.NoError(t, err)

		collections, err := db.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		assert.Equal(t, c.ID, collections[0].ID)

		_, err = db.Rehydrate(ctx)
		require.ErrorIs(t, err, ErrLedgerUnavailable)
		assert.Equal(t, KindLedgerUnavailable, KindOf(err))
	})
}

func TestBuilder(t *testing.T) {
	ctx := context.Background()

	base := NewBuilder().M(8).EFSearch(32).RandomSeed(7)
	withEmbedder := base.Embedder(embed.NewHash(32))

	db := base.MustBuild()
	defer db.Close(ctx)

	_, err := db.CreateCollection(ctx, "nodim")
	require.Error(t, err, "base builder must not inherit the derived embedder")

	db2, err := withEmbedder.Build()
	require.NoError(t, err)
	defer db2.Close(ctx)

	c, err := db2.CreateCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 32, c.Dimension)

	stats, err := db2.CollectionStats(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "8", stats.Index.Parameters["M"])
	assert.Equal(t, "32", stats.Index.Parameters["EFSearch"])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindInvalidArgument, KindOf(ErrInvalidK))
	assert.Equal(t, "DimensionMismatch", KindDimensionMismatch.String())
}

type unknownDimEmbedder struct {
	*embed.Hash
}

func (unknownDimEmbedder) Dimension() int { return 0 }

type brokenLedger struct{}

var errBroken = errors.New("connection refused")

func (brokenLedger) CreateCollection(context.Context, ledger.CollectionInfo) error   { return errBroken }
func (brokenLedger) UpdateCollection(context.Context, ledger.CollectionUpdate) error { return errBroken }
func (brokenLedger) DeleteCollection(context.Context, string) error                  { return errBroken }
func (brokenLedger) ListCollections(context.Context) ([]string, error)               { return nil, errBroken }
func (brokenLedger) GetCollection(context.Context, string) (ledger.CollectionInfo, error) {
	return ledger.CollectionInfo{}, errBroken
}

func mustString(t *testing.T, v metadata.Value) string {
	t.Helper()

	s, ok := v.AsString()
	require.True(t, ok)

	return s
}

func TestDocumentArchive(t *testing.T) {
	ctx := context.Background()
	raw := []byte("Rockets fly to the moon. Fish swim in the sea.")

	stores := map[string]func(t *testing.T) blobstore.Store{
		"Memory": func(t *testing.T) blobstore.Store {
			s, err := blobstore.NewCompressed(blobstore.NewMemoryStore(), blobstore.CompressionZstd)
			require.NoError(t, err)
			return s
		},
		"LocalMapped": func(t *testing.T) blobstore.Store {
			s, err := blobstore.NewCompressed(blobstore.NewLocalStore(t.TempDir()), blobstore.CompressionNone)
			require.NoError(t, err)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			db := newTestDB(t, WithEmbedder(embed.NewHash(32)), WithBlobStore(store))

			c, err := db.CreateCollection(ctx, "docs")
			require.NoError(t, err)

			res, err := db.IngestDocument(ctx, c.ID, Document{Filename: "space.txt", MimeType: "text/plain", Raw: raw}, chunk.DefaultStrategy())
			require.NoError(t, err)
			require.NotEmpty(t, res.ArchiveKey)
			assert.Empty(t, res.ArchiveError)

			got, err := db.Document(ctx, res.ArchiveKey)
			require.NoError(t, err)
			assert.Equal(t, raw, got)

			_, err = db.Document(ctx, "ledger/secret")
			assert.ErrorIs(t, err, ErrInvalidArgument)

			_, err = db.Document(ctx, ingest.ArchiveKey(c.ID, "missing", "x.txt"))
			assert.ErrorIs(t, err, ErrNotFound)

			deleted, err := db.DeleteCollection(ctx, c.ID)
			require.NoError(t, err)
			require.True(t, deleted)

			_, err = db.Document(ctx, res.ArchiveKey)
			assert.ErrorIs(t, err, ErrNotFound)

			left, err := store.List(ctx, ingest.CollectionArchivePrefix(c.ID))
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}

	t.Run("NoBlobStore", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.Document(ctx, "documents/c/d/x.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
