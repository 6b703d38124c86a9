package registry

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecdb/internal/hnsw"
)

// Search returns up to k live records closest to query, best first.
//
// The collection lock is held only while the live set is snapshotted.
// Records inserted after that point are invisible to this search, and
// records deleted after it may still be returned.
func (r *Registry) Search(ctx context.Context, collectionID string, query []float32, k int, p SearchParams) ([]Hit, error) {
	if k <= 0 {
		return nil, hnsw.ErrInvalidK
	}

	e, ok := r.load(collectionID)
	if !ok {
		return nil, ErrCollectionNotFound
	}

	e.mu.RLock()

	if e.deleted {
		e.mu.RUnlock()
		return nil, ErrCollectionNotFound
	}

	if len(query) != e.meta.Dimension {
		dim := e.meta.Dimension
		e.mu.RUnlock()

		return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(query)}
	}

	index := e.index
	records := e.records
	live := e.live.Clone()
	metaIndex := e.metaIndex

	var allow *roaring.Bitmap

	var match func(uint32) bool

	if !p.Filter.IsEmpty() {
		if compiled, ok := metaIndex.CompileFilter(p.Filter); ok {
			compiled.And(live)
			allow = compiled
		} else {
			match = metaIndex.CreateFilterFunc(p.Filter)
		}
	}

	e.mu.RUnlock()

	if live.IsEmpty() || (allow != nil && allow.IsEmpty()) {
		return []Hit{}, nil
	}

	overSample := p.OverSample
	if overSample < 1 {
		overSample = r.opts.OverSampleFactor
	}

	opts := &hnsw.SearchOptions{EFSearch: p.EF}
	if allow != nil {
		opts.Allow = allow
	} else {
		opts.Filter = hnsw.FilterFunc(func(id uint32) bool {
			return live.Contains(id) && (match == nil || match(id))
		})
	}

	results, err := index.KNNSearch(ctx, query, k*overSample, opts)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, min(k, len(results)))

	for _, res := range results {
		if len(hits) == k {
			break
		}

		// Guards against nodes linked after the snapshot.
		if int(res.ID) >= len(records) || !live.Contains(res.ID) {
			continue
		}

		rec := records[res.ID]

		hits = append(hits, Hit{
			RecordID: rec.ID,
			Score:    res.Score,
			Distance: res.Distance,
			Metadata: rec.Metadata.Clone(),
		})
	}

	return hits, nil
}
