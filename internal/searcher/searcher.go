package searcher

import "sync"

// Searcher is a reusable execution context for graph search.
// It owns the scratch memory a query needs so steady-state searches do not
// allocate.
//
// Searcher is NOT thread-safe.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Candidates is a min-heap of nodes still to expand, closest on top.
	Candidates *PriorityQueue

	// Results is a bounded max-heap of the best nodes found, worst on top.
	Results *PriorityQueue

	// Scratch is a reusable buffer for draining Results.
	Scratch []PriorityQueueItem

	// OpsPerformed counts distance computations in the current query.
	OpsPerformed int
}

var searcherPool = sync.Pool{
	New: func() any {
		return NewSearcher(1024, 128)
	},
}

// NewSearcher creates a new searcher with the given initial capacities.
func NewSearcher(visitedCap, queueCap int) *Searcher {
	return &Searcher{
		Visited:    NewVisitedSet(visitedCap),
		Candidates: NewPriorityQueue(false),
		Results:    NewPriorityQueue(true),
		Scratch:    make([]PriorityQueueItem, 0, queueCap),
	}
}

// Get returns a reset Searcher from the pool.
func Get() *Searcher {
	s := searcherPool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns a Searcher to the pool.
func Put(s *Searcher) {
	searcherPool.Put(s)
}

// Reset clears the searcher state for reuse.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.Results.Reset()
	s.Scratch = s.Scratch[:0]
	s.OpsPerformed = 0
}

// DrainSorted empties Results into Scratch ordered closest first.
func (s *Searcher) DrainSorted() []PriorityQueueItem {
	s.Scratch = s.Scratch[:0]
	for s.Results.Len() > 0 {
		item, _ := s.Results.PopItem()
		s.Scratch = append(s.Scratch, item)
	}

	// Max-heap pops worst first.
	for i, j := 0, len(s.Scratch)-1; i < j; i, j = i+1, j-1 {
		s.Scratch[i], s.Scratch[j] = s.Scratch[j], s.Scratch[i]
	}

	return s.Scratch
}
