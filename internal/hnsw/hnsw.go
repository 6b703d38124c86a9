package hnsw

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/internal/searcher"
)

// Neighbor is a link to another node with its cached distance.
type Neighbor struct {
	ID   uint32
	Dist float32
}

// node is an arena entry. Vectors are stored prepared for the metric
// (L2-normalized for cosine).
type node struct {
	vec   []float32
	level int
	links [][]Neighbor // links[level]
}

// HNSW represents the Hierarchical Navigable Small World graph.
type HNSW struct {
	mu sync.RWMutex

	nodes      []node
	entryPoint uint32
	maxLevel   int

	distanceFunc distance.Func
	rngState     uint64

	maxConnectionsPerLayer int
	maxConnectionsLayer0   int
	layerMultiplier        float64
	efSearch               int

	opts   Options
	logger *slog.Logger
}

// New creates a new HNSW index.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: opts.Dimension}
	}

	if opts.M < minimumM {
		// M < 2 would make the level multiplier 1/ln(M) undefined.
		opts.M = minimumM
	}

	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}

	if opts.EFSearch <= 0 {
		opts.EFSearch = DefaultEFSearch
	}

	distFunc, err := distance.Provider(opts.DistanceType)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seed := uint64(time.Now().UnixNano())
	if opts.RandomSeed != nil {
		seed = uint64(*opts.RandomSeed)
	}
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}

	return &HNSW{
		distanceFunc:           distFunc,
		rngState:               seed,
		maxConnectionsPerLayer: opts.M,
		maxConnectionsLayer0:   opts.M * mmax0Multiplier,
		layerMultiplier:        1 / math.Log(float64(opts.M)),
		efSearch:               opts.EFSearch,
		opts:                   opts,
		logger:                 logger,
	}, nil
}

// Dimension returns the vector dimension of the index.
func (h *HNSW) Dimension() int { return h.opts.Dimension }

// Metric returns the distance metric of the index.
func (h *HNSW) Metric() distance.Metric { return h.opts.DistanceType }

// Len returns the number of nodes in the index.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.nodes)
}

// EFSearch returns the current default search beam width.
func (h *HNSW) EFSearch() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.efSearch
}

// SetEFSearch changes the default search beam width. Values <= 0 are ignored.
func (h *HNSW) SetEFSearch(ef int) {
	if ef <= 0 {
		return
	}

	h.mu.Lock()
	h.efSearch = ef
	h.mu.Unlock()
}

// Insert adds a vector to the graph and returns its ID. IDs are assigned
// sequentially from 0 and never reused.
//
// The context is only checked before the graph is modified; once linking
// starts the insert runs to completion.
func (h *HNSW) Insert(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	vec, err := h.prepareVector(v)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := uint32(len(h.nodes))
	level := h.determineLayer()

	h.nodes = append(h.nodes, node{
		vec:   vec,
		level: level,
		links: make([][]Neighbor, level+1),
	})

	if id == 0 {
		h.entryPoint = id
		h.maxLevel = level
		return id, nil
	}

	h.insertNode(id, vec, level)
	h.updateEntryPoint(id, level)

	return id, nil
}

func (h *HNSW) prepareVector(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrEmptyVector
	}

	if len(v) != h.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(v)}
	}

	vec := make([]float32, len(v))
	copy(vec, v)

	if h.opts.DistanceType.Normalizes() && !distance.NormalizeL2InPlace(vec) {
		// A zero vector stays all zeros, so every cosine similarity against it is 0.
		h.logger.Warn("hnsw: zero-magnitude vector indexed, cosine similarity against it is 0")
		clear(vec)
	}

	return vec, nil
}

// determineLayer draws floor(-ln(U) * 1/ln(M)) with xorshift64*.
// Caller must hold h.mu.
func (h *HNSW) determineLayer() int {
	h.rngState ^= h.rngState >> 12
	h.rngState ^= h.rngState << 25
	h.rngState ^= h.rngState >> 27

	r := float64(h.rngState*0x2545F4914F6CDD1D>>11) / float64(1<<53) // [0, 1)
	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}

	return int(math.Floor(-math.Log(r) * h.layerMultiplier))
}

func (h *HNSW) updateEntryPoint(id uint32, level int) {
	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = id
	}
}

func (h *HNSW) maxConns(level int) int {
	if level == 0 {
		return h.maxConnectionsLayer0
	}
	return h.maxConnectionsPerLayer
}

func (h *HNSW) dist(q []float32, id uint32) float32 {
	return h.distanceFunc(q, h.nodes[id].vec)
}

// insertNode performs the graph traversal and linking. Caller must hold h.mu.
func (h *HNSW) insertNode(id uint32, vec []float32, level int) {
	currID := h.entryPoint
	currDist := h.dist(vec, currID)

	s := searcher.Get()
	defer searcher.Put(s)
	s.Visited.EnsureCapacity(len(h.nodes))

	// 1. Greedy search from the top layer down to level+1.
	for l := h.maxLevel; l > level; l-- {
		currID, currDist = h.greedyStep(vec, currID, currDist, l)
	}

	// 2. Search and link from min(level, maxLevel) down to 0.
	for l := min(level, h.maxLevel); l >= 0; l-- {
		// Construction never filters; the new node itself is not linked yet.
		_ = h.searchLayer(context.Background(), s, vec, currID, currDist, l, h.opts.EFConstruction, nil)

		sorted := s.DrainSorted()
		if len(sorted) > 0 {
			currID, currDist = sorted[0].Node, sorted[0].Distance
		}

		neighbors := h.selectNeighbors(sorted, h.maxConns(l))

		conns := make([]Neighbor, len(neighbors))
		for i, n := range neighbors {
			conns[i] = Neighbor{ID: n.Node, Dist: n.Distance}
		}
		h.nodes[id].links[l] = conns

		for _, n := range neighbors {
			h.addConnection(n.Node, id, l, n.Distance)
		}
	}
}

// greedyStep walks level l towards q until no neighbor is closer.
func (h *HNSW) greedyStep(q []float32, currID uint32, currDist float32, l int) (uint32, float32) {
	changed := true
	for changed {
		changed = false
		for _, next := range h.nodes[currID].links[l] {
			nextDist := h.dist(q, next.ID)
			if nextDist < currDist || (nextDist == currDist && next.ID < currID) {
				currID = next.ID
				currDist = nextDist
				changed = true
			}
		}
	}
	return currID, currDist
}

// selectNeighbors picks up to m links from candidates sorted closest first.
func (h *HNSW) selectNeighbors(sorted []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	if len(sorted) <= m || !h.opts.Heuristic {
		return append([]searcher.PriorityQueueItem(nil), sorted[:min(m, len(sorted))]...)
	}

	result := h.applyHeuristic(sorted, m)
	if len(result) < m {
		result = fillUpNeighbors(result, sorted, m)
	}
	return result
}

// applyHeuristic keeps a candidate only if it is closer to the base node
// than to every neighbor already kept.
func (h *HNSW) applyHeuristic(candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	result := make([]searcher.PriorityQueueItem, 0, m)

	for _, cand := range candidates {
		if len(result) >= m {
			break
		}

		candVec := h.nodes[cand.Node].vec

		good := true
		for _, r := range result {
			if h.distanceFunc(candVec, h.nodes[r.Node].vec) < cand.Distance {
				good = false
				break
			}
		}

		if good {
			result = append(result, cand)
		}
	}

	return result
}

func fillUpNeighbors(result, candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	for _, cand := range candidates {
		if len(result) >= m {
			break
		}

		found := false
		for _, r := range result {
			if r.Node == cand.Node {
				found = true
				break
			}
		}

		if !found {
			result = append(result, cand)
		}
	}
	return result
}

// addConnection links sourceID -> targetID on level, pruning the source's
// list with the selection heuristic when it overflows.
func (h *HNSW) addConnection(sourceID, targetID uint32, level int, dist float32) {
	src := &h.nodes[sourceID]
	if level > src.level {
		return
	}

	conns := src.links[level]
	for _, c := range conns {
		if c.ID == targetID {
			return
		}
	}

	maxM := h.maxConns(level)
	if len(conns) < maxM {
		src.links[level] = append(conns, Neighbor{ID: targetID, Dist: dist})
		return
	}

	candidates := searcher.NewPriorityQueue(false)
	for _, c := range conns {
		candidates.PushItem(searcher.PriorityQueueItem{Node: c.ID, Distance: c.Dist})
	}
	candidates.PushItem(searcher.PriorityQueueItem{Node: targetID, Distance: dist})

	sorted := make([]searcher.PriorityQueueItem, 0, candidates.Len())
	for candidates.Len() > 0 {
		item, _ := candidates.PopItem()
		sorted = append(sorted, item)
	}

	neighbors := h.selectNeighbors(sorted, maxM)

	pruned := make([]Neighbor, len(neighbors))
	for i, n := range neighbors {
		pruned[i] = Neighbor{ID: n.Node, Dist: n.Distance}
	}
	src.links[level] = pruned
}
