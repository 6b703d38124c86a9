package hnsw

import (
	"context"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/internal/searcher"
)

// cancelCheckInterval is how many node expansions run between context checks.
const cancelCheckInterval = 64

// searchLayer runs a beam search of width ef on one level. Results land in
// s.Results; nodes rejected by accept are traversed but never returned.
// Caller must hold h.mu (read or write).
func (h *HNSW) searchLayer(ctx context.Context, s *searcher.Searcher, query []float32, epID uint32, epDist float32, level int, ef int, accept func(uint32) bool) error {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.Results.Reset()

	s.Visited.Visit(epID)

	// The entry point always seeds navigation, even when filtered out.
	s.Candidates.PushItem(searcher.PriorityQueueItem{Node: epID, Distance: epDist})
	if accept == nil || accept(epID) {
		s.Results.PushItem(searcher.PriorityQueueItem{Node: epID, Distance: epDist})
	}

	candidates := s.Candidates
	results := s.Results

	expanded := 0

	for candidates.Len() > 0 {
		expanded++
		if expanded%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		curr, _ := candidates.PopItem()

		if results.Len() >= ef {
			worst, _ := results.TopItem()
			if curr.Distance > worst.Distance {
				break
			}
		}

		n := &h.nodes[curr.Node]
		if level > n.level {
			continue
		}

		for _, next := range n.links[level] {
			if s.Visited.Visited(next.ID) {
				continue
			}
			s.Visited.Visit(next.ID)

			nextDist := h.dist(query, next.ID)
			s.OpsPerformed++

			// Skip candidates that cannot improve a full result set.
			if results.Len() >= ef {
				worst, _ := results.TopItem()
				if nextDist > worst.Distance {
					continue
				}
			}

			item := searcher.PriorityQueueItem{Node: next.ID, Distance: nextDist}
			candidates.PushItem(item)

			if accept == nil || accept(next.ID) {
				results.PushItemBounded(item, ef)
			}
		}
	}

	return nil
}

// KNNSearch returns up to k nearest nodes to q ordered by similarity
// descending; equal distances resolve to the smaller (earlier) ID.
func (h *HNSW) KNNSearch(ctx context.Context, q []float32, k int, opts *SearchOptions) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}

	query, err := h.prepareQuery(q)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.nodes) == 0 {
		return []SearchResult{}, nil
	}

	s := searcher.Get()
	defer searcher.Put(s)
	s.Visited.EnsureCapacity(len(h.nodes))

	accept := buildAccept(opts)

	if opts != nil && opts.Allow != nil && opts.Allow.GetCardinality() < bruteForceThreshold {
		if err := h.searchBitmap(ctx, s, query, k, opts.Allow, accept); err != nil {
			return nil, err
		}
	} else {
		ef := h.determineEF(k, opts)

		currID, currDist := h.entryPoint, h.dist(query, h.entryPoint)
		for l := h.maxLevel; l > 0; l-- {
			currID, currDist = h.greedyStep(query, currID, currDist, l)
		}

		if err := h.searchLayer(ctx, s, query, currID, currDist, 0, ef, accept); err != nil {
			return nil, err
		}
	}

	sorted := s.DrainSorted()
	sorted = sorted[:min(k, len(sorted))]

	res := make([]SearchResult, len(sorted))
	for i, item := range sorted {
		res[i] = SearchResult{
			ID:       item.Node,
			Distance: item.Distance,
			Score:    h.opts.DistanceType.Score(item.Distance),
		}
	}

	return res, nil
}

// BruteSearch scans every node. It is exact and used to measure recall.
func (h *HNSW) BruteSearch(ctx context.Context, q []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	query, err := h.prepareQuery(q)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]SearchResult, 0, len(h.nodes))
	for id := range h.nodes {
		if id%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if filter != nil && !filter.Matches(uint32(id)) {
			continue
		}

		d := h.dist(query, uint32(id))
		res = append(res, SearchResult{ID: uint32(id), Distance: d, Score: h.opts.DistanceType.Score(d)})
	}

	slices.SortFunc(res, func(a, b SearchResult) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return int(a.ID) - int(b.ID)
	})

	return res[:min(k, len(res))], nil
}

func (h *HNSW) searchBitmap(ctx context.Context, s *searcher.Searcher, query []float32, k int, allow *roaring.Bitmap, accept func(uint32) bool) error {
	it := allow.Iterator()
	n := 0
	for it.HasNext() {
		id := it.Next()
		if int(id) >= len(h.nodes) {
			break
		}

		n++
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if accept != nil && !accept(id) {
			continue
		}

		s.Results.PushItemBounded(searcher.PriorityQueueItem{Node: id, Distance: h.dist(query, id)}, k)
		s.OpsPerformed++
	}
	return nil
}

func buildAccept(opts *SearchOptions) func(uint32) bool {
	if opts == nil {
		return nil
	}

	switch {
	case opts.Allow != nil && opts.Filter != nil:
		allow, filter := opts.Allow, opts.Filter
		return func(id uint32) bool { return allow.Contains(id) && filter.Matches(id) }
	case opts.Allow != nil:
		return opts.Allow.Contains
	case opts.Filter != nil:
		return opts.Filter.Matches
	default:
		return nil
	}
}

func (h *HNSW) prepareQuery(q []float32) ([]float32, error) {
	if len(q) == 0 {
		return nil, ErrEmptyVector
	}

	if len(q) != h.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(q)}
	}

	if !h.opts.DistanceType.Normalizes() {
		return q, nil
	}

	vec, ok := distance.NormalizeL2Copy(q)
	if !ok {
		h.logger.Debug("hnsw: zero-magnitude query, cosine similarities are 0")
		return make([]float32, len(q)), nil
	}

	return vec, nil
}

// determineEF returns max(ef, k) where ef is the per-query override or the
// configured default. Caller must hold h.mu.
func (h *HNSW) determineEF(k int, opts *SearchOptions) int {
	ef := h.efSearch
	if opts != nil && opts.EFSearch > 0 {
		ef = opts.EFSearch
	}

	return max(ef, k)
}
