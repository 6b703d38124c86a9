package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/metadata"
	"github.com/hupe1980/vecdb/testutil"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()

	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := int64(42)

	return New(func(o *Options) {
		o.RandomSeed = &seed
		o.Now = func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		}
	})
}

func mustCreate(t *testing.T, r *Registry, name string, dim int) Collection {
	t.Helper()

	c, err := r.Create(CreateParams{Name: name, Dimension: dim})
	require.NoError(t, err)

	return c
}

func TestCreate(t *testing.T) {
	r := newRegistry(t)

	t.Run("valid", func(t *testing.T) {
		c, err := r.Create(CreateParams{Name: " docs ", Description: "d", Dimension: 3, IsPublic: true})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "docs", c.Name)
		assert.Equal(t, 3, c.Dimension)
		assert.Equal(t, distance.MetricCosine, c.Metric)
		assert.True(t, c.IsPublic)
		assert.Zero(t, c.RecordCount)
		assert.False(t, c.Shadow)

		got, err := r.Get(c.ID)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "   ", "default", "DEFAULT", " Default "} {
			_, err := r.Create(CreateParams{Name: name, Dimension: 3})
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
	})

	t.Run("reserved name with override", func(t *testing.T) {
		c, err := r.Create(CreateParams{Name: "default", Dimension: 3, AllowReservedName: true})
		require.NoError(t, err)
		assert.Equal(t, "default", c.Name)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := r.Create(CreateParams{Name: "x", Dimension: 0})

		var dimErr *ErrInvalidDimension
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 0, dimErr.Dimension)
	})
}

func TestInsertAndGetRecord(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 3)
	ctx := context.Background()

	vec := []float32{0.1, 0.2, 0.3}
	doc := metadata.Document{"tag": metadata.String("a"), "n": metadata.Int(1)}

	rec, err := r.Insert(ctx, c.ID, vec, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, uint32(0), rec.InternalID)

	// Caller-owned inputs must not alias stored state.
	vec[0] = 9
	doc["tag"] = metadata.String("mutated")

	got, err := r.GetRecord(c.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)
	assert.True(t, got.Metadata.Equal(metadata.Document{"tag": metadata.String("a"), "n": metadata.Int(1)}))

	updated, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RecordCount)
	assert.NotEqual(t, c.ContentHash, updated.ContentHash)
	assert.True(t, updated.Updated.After(c.Updated))

	_, err = r.GetRecord(c.ID, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = r.GetRecord("missing", rec.ID)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestInsertDimensionMismatch(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 3)

	_, err := r.Insert(context.Background(), c.ID, []float32{1, 2}, nil)

	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)

	got, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RecordCount)
}

func TestInsertBatchValidatesFirst(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 2)

	_, err := r.InsertBatch(context.Background(), c.ID, []Item{
		{Vector: []float32{1, 0}},
		{Vector: []float32{1, 0, 0}},
	})
	require.Error(t, err)

	got, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RecordCount)

	recs, err := r.InsertBatch(context.Background(), c.ID, []Item{
		{Vector: []float32{1, 0}},
		{Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint32(0), recs[0].InternalID)
	assert.Equal(t, uint32(1), recs[1].InternalID)
}

func TestInsertBatchCancelled(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.InsertBatch(ctx, c.ID, []Item{
		{Vector: []float32{1, 0}},
		{Vector: []float32{0, 1}},
	})
	require.ErrorIs(t, err, context.Canceled)

	got, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RecordCount)
	assert.Zero(t, got.LiveCount)
}

func TestInsertUnknownCollection(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Insert(context.Background(), "nope", []float32{1}, nil)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestSearchScenario(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 3)
	ctx := context.Background()

	a, err := r.Insert(ctx, c.ID, []float32{1, 0, 0}, metadata.Document{"name": metadata.String("a")})
	require.NoError(t, err)
	b, err := r.Insert(ctx, c.ID, []float32{0, 1, 0}, metadata.Document{"name": metadata.String("b")})
	require.NoError(t, err)
	_, err = r.Insert(ctx, c.ID, []float32{0, 0, 1}, metadata.Document{"name": metadata.String("c")})
	require.NoError(t, err)

	hits, err := r.Search(ctx, c.ID, []float32{0.9, 0.1, 0}, 2, SearchParams{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a.ID, hits[0].RecordID)
	assert.Equal(t, b.ID, hits[1].RecordID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.InDelta(t, 0.9939, hits[0].Score, 1e-3)

	name, ok := hits[0].Metadata.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, metadata.String("a"), name)
}

func TestSearchErrors(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 3)
	ctx := context.Background()

	_, err := r.Search(ctx, "missing", []float32{1, 0, 0}, 1, SearchParams{})
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	var mismatch *ErrDimensionMismatch
	_, err = r.Search(ctx, c.ID, []float32{1, 0}, 1, SearchParams{})
	assert.ErrorAs(t, err, &mismatch)

	_, err = r.Search(ctx, c.ID, []float32{1, 0, 0}, 0, SearchParams{})
	assert.Error(t, err)

	hits, err := r.Search(ctx, c.ID, []float32{1, 0, 0}, 5, SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteRecordTombstones(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 3)
	ctx := context.Background()

	a, err := r.Insert(ctx, c.ID, []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	b, err := r.Insert(ctx, c.ID, []float32{0.9, 0.1, 0}, nil)
	require.NoError(t, err)

	before, err := r.Get(c.ID)
	require.NoError(t, err)

	assert.True(t, r.DeleteRecord(c.ID, a.ID))
	assert.False(t, r.DeleteRecord(c.ID, a.ID))
	assert.False(t, r.DeleteRecord(c.ID, "unknown"))
	assert.False(t, r.DeleteRecord("unknown", b.ID))

	_, err = r.GetRecord(c.ID, a.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	hits, err := r.Search(ctx, c.ID, []float32{1, 0, 0}, 2, SearchParams{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, b.ID, hits[0].RecordID)

	after, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.RecordCount)
	assert.NotEqual(t, before.ContentHash, after.ContentHash)

	st, err := r.Stats(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Tombstones)
}

func TestContentHashIsOrderIndependent(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 2)
	ctx := context.Background()

	empty := c.ContentHash

	rec, err := r.Insert(ctx, c.ID, []float32{1, 0}, nil)
	require.NoError(t, err)
	require.True(t, r.DeleteRecord(c.ID, rec.ID))

	got, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, empty, got.ContentHash)
}

func TestSearchWithFilter(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 2)
	ctx := context.Background()

	var evens []string

	for i := range 20 {
		doc := metadata.Document{
			"parity": metadata.String([]string{"even", "odd"}[i%2]),
			"i":      metadata.Int(int64(i)),
		}

		rec, err := r.Insert(ctx, c.ID, []float32{1, float32(i) / 20}, doc)
		require.NoError(t, err)

		if i%2 == 0 {
			evens = append(evens, rec.ID)
		}
	}

	t.Run("compiled", func(t *testing.T) {
		fs := metadata.NewFilterSet(metadata.Eq("parity", metadata.String("even")))

		hits, err := r.Search(ctx, c.ID, []float32{1, 0}, 5, SearchParams{Filter: fs})
		require.NoError(t, err)
		require.Len(t, hits, 5)

		for _, h := range hits {
			assert.Contains(t, evens, h.RecordID)
		}
	})

	t.Run("predicate", func(t *testing.T) {
		fs := metadata.NewFilterSet(metadata.Filter{Key: "i", Operator: metadata.OpGreaterEqual, Value: metadata.Int(15)})

		hits, err := r.Search(ctx, c.ID, []float32{1, 0}, 10, SearchParams{Filter: fs})
		require.NoError(t, err)
		require.Len(t, hits, 5)

		for _, h := range hits {
			v, ok := h.Metadata.Lookup("i")
			require.True(t, ok)
			n, _ := v.AsInt64()
			assert.GreaterOrEqual(t, n, int64(15))
		}
	})

	t.Run("no matches", func(t *testing.T) {
		fs := metadata.NewFilterSet(metadata.Eq("parity", metadata.String("none")))

		hits, err := r.Search(ctx, c.ID, []float32{1, 0}, 5, SearchParams{Filter: fs})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestListRecordsPagination(t *testing.T) {
	r := newRegistry(t)
	c := mustCreate(t, r, "docs", 2)
	ctx := context.Background()

	var ids []string

	for i := range 5 {
		rec, err := r.Insert(ctx, c.ID, []float32{float32(i), 1}, nil)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	require.True(t, r.DeleteRecord(c.ID, ids[1]))

	page, err := r.ListRecords(c.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, ids[0], page.Records[0].ID)
	assert.Equal(t, ids[2], page.Records[1].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, 4, page.Total)

	page, err = r.ListRecords(c.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, ids[3], page.Records[0].ID)
	assert.Equal(t, ids[4], page.Records[1].ID)
	assert.False(t, page.HasMore)

	page, err = r.ListRecords(c.ID, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasMore)

	page, err = r.ListRecords(c.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.True(t, page.HasMore)

	_, err = r.ListRecords(c.ID, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListAndDeleteCollection(t *testing.T) {
	r := newRegistry(t)

	a := mustCreate(t, r, "a", 2)
	b := mustCreate(t, r, "b", 2)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	found, err := r.FindByName("b")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	assert.True(t, r.DeleteCollection(a.ID))
	assert.False(t, r.DeleteCollection(a.ID))

	_, err = r.Get(a.ID)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = r.Insert(context.Background(), a.ID, []float32{1, 0}, nil)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	assert.Equal(t, 1, r.Len())

	_, err = r.FindByName("a")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestShadow(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	c, created, err := r.Shadow(Collection{ID: "ledger-1", Name: "remote", Dimension: 2, RecordCount: 7})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, c.Shadow)
	assert.Equal(t, 7, c.RecordCount)
	assert.Zero(t, c.LiveCount)

	hits, err := r.Search(ctx, "ledger-1", []float32{1, 0}, 3, SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = r.Insert(ctx, "ledger-1", []float32{1, 0}, nil)
	require.NoError(t, err)

	got, err := r.Get("ledger-1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.RecordCount)
	assert.Equal(t, 1, got.LiveCount)

	again, created, err := r.Shadow(Collection{ID: "ledger-1", Name: "other", Dimension: 2})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "remote", again.Name)

	_, _, err = r.Shadow(Collection{ID: "bad", Dimension: 0})
	assert.Error(t, err)

	_, _, err = r.Shadow(Collection{Dimension: 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = r.Shadow(Collection{ID: "ledger-2", Dimension: 2, ContentHash: "not-hex"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestShadowKeepsContentHash(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	const ledgerHash = "5ef1845eaa7c121a"

	c, created, err := r.Shadow(Collection{ID: "ledger-1", Dimension: 2, RecordCount: 1, ContentHash: ledgerHash})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, ledgerHash, c.ContentHash)

	rec, err := r.Insert(ctx, "ledger-1", []float32{0, 1}, nil)
	require.NoError(t, err)

	got, err := r.Get("ledger-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RecordCount)
	assert.Equal(t, formatHash(0x5ef1845eaa7c121a^recordDigest(rec)), got.ContentHash)

	require.True(t, r.DeleteRecord("ledger-1", rec.ID))

	got, err = r.Get("ledger-1")
	require.NoError(t, err)
	assert.Equal(t, ledgerHash, got.ContentHash)
}

func TestConcurrentCollections(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	rng := testutil.NewRNG(1)

	const (
		collections = 4
		perWorker   = 50
		dim         = 8
	)

	ids := make([]string, collections)
	for i := range ids {
		ids[i] = mustCreate(t, r, fmt.Sprintf("c%d", i), dim).ID
	}

	vectors := rng.UniformVectors(collections*perWorker, dim)

	var wg sync.WaitGroup

	for w := range collections {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			for i := range perWorker {
				v := vectors[w*perWorker+i]

				rec, err := r.Insert(ctx, ids[w], v, nil)
				if !assert.NoError(t, err) {
					return
				}

				// A search started after the insert returned must see it.
				hits, err := r.Search(ctx, ids[w], v, 1, SearchParams{EF: 100})
				if assert.NoError(t, err) && assert.NotEmpty(t, hits) {
					assert.InDelta(t, 1.0, hits[0].Score, 1e-4, rec.ID)
				}
			}
		}(w)
	}

	wg.Wait()

	for _, id := range ids {
		c, err := r.Get(id)
		require.NoError(t, err)
		assert.Equal(t, perWorker, c.RecordCount)
	}
}
