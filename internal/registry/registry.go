package registry

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/internal/hnsw"
	"github.com/hupe1980/vecdb/metadata"
)

// entry is the state of one collection. mu guards every field.
type entry struct {
	mu sync.RWMutex

	meta     Collection
	baseline int // record count reported by the ledger for shadows

	index     *hnsw.HNSW
	records   []Record // indexed by internal ID
	byID      map[string]uint32
	live      *roaring.Bitmap
	metaIndex *metadata.UnifiedIndex

	// contentHash is the XOR of per-record digests, so deletes can undo inserts.
	contentHash uint64

	deleted bool
}

func (e *entry) snapshot() Collection {
	c := e.meta
	c.LiveCount = int(e.live.GetCardinality())
	c.RecordCount = e.baseline + c.LiveCount
	c.ContentHash = formatHash(e.contentHash)

	return c
}

// Registry stores collections keyed by ID.
type Registry struct {
	entries sync.Map // string -> *entry

	opts   Options
	logger *slog.Logger
}

// New creates an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.OverSampleFactor < 1 {
		opts.OverSampleFactor = DefaultOverSampleFactor
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Registry{
		opts:   opts,
		logger: logger,
	}
}

// ValidateName reports whether name may be used for a new collection.
func ValidateName(name string, allowReserved bool) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrInvalidName
	}

	if !allowReserved && strings.EqualFold(trimmed, ReservedName) {
		return ErrInvalidName
	}

	return nil
}

// Create registers a new, empty collection.
func (r *Registry) Create(p CreateParams) (Collection, error) {
	if err := ValidateName(p.Name, p.AllowReservedName); err != nil {
		return Collection{}, err
	}

	if p.Dimension <= 0 {
		return Collection{}, &ErrInvalidDimension{Dimension: p.Dimension}
	}

	index, err := r.newIndex(p.Dimension, p.Metric)
	if err != nil {
		return Collection{}, err
	}

	now := r.opts.Now()

	e := newEntry(Collection{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		IsPublic:    p.IsPublic,
		Dimension:   p.Dimension,
		Metric:      p.Metric,
		Created:     now,
		Updated:     now,
	}, index)

	r.entries.Store(e.meta.ID, e)

	r.logger.Debug("collection created", "collection_id", e.meta.ID, "name", e.meta.Name, "dimension", p.Dimension, "metric", p.Metric.String())

	return e.snapshot(), nil
}

// Shadow registers a collection described by the ledger. Its index starts
// empty while RecordCount and ContentHash keep the ledger's values. It returns false when
// a collection with the same ID already exists.
func (r *Registry) Shadow(c Collection) (Collection, bool, error) {
	if c.ID == "" {
		return Collection{}, false, ErrInvalidArgument
	}

	if existing, ok := r.load(c.ID); ok {
		existing.mu.RLock()
		defer existing.mu.RUnlock()

		return existing.snapshot(), false, nil
	}

	if c.Dimension <= 0 {
		return Collection{}, false, &ErrInvalidDimension{Dimension: c.Dimension}
	}

	index, err := r.newIndex(c.Dimension, c.Metric)
	if err != nil {
		return Collection{}, false, err
	}

	baseline := max(c.RecordCount, 0)

	var hash uint64
	if c.ContentHash != "" {
		hash, err = strconv.ParseUint(c.ContentHash, 16, 64)
		if err != nil {
			return Collection{}, false, fmt.Errorf("%w: content hash %q", ErrInvalidArgument, c.ContentHash)
		}
	}

	c.Shadow = true
	c.LiveCount = 0
	if c.Created.IsZero() {
		c.Created = r.opts.Now()
	}
	if c.Updated.IsZero() {
		c.Updated = c.Created
	}

	e := newEntry(c, index)
	e.baseline = baseline
	e.contentHash = hash

	actual, loaded := r.entries.LoadOrStore(c.ID, e)
	if loaded {
		existing := actual.(*entry)
		existing.mu.RLock()
		defer existing.mu.RUnlock()

		return existing.snapshot(), false, nil
	}

	return e.snapshot(), true, nil
}

func newEntry(c Collection, index *hnsw.HNSW) *entry {
	return &entry{
		meta:      c,
		index:     index,
		byID:      make(map[string]uint32),
		live:      roaring.New(),
		metaIndex: metadata.NewUnifiedIndex(),
	}
}

func (r *Registry) newIndex(dim int, metric distance.Metric) (*hnsw.HNSW, error) {
	return hnsw.New(func(o *hnsw.Options) {
		o.Dimension = dim
		o.DistanceType = metric
		o.M = r.opts.M
		o.EFConstruction = r.opts.EFConstruction
		o.EFSearch = r.opts.EFSearch
		o.Heuristic = r.opts.Heuristic
		o.RandomSeed = r.opts.RandomSeed
		o.Logger = r.logger
	})
}

func (r *Registry) load(id string) (*entry, bool) {
	v, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}

	return v.(*entry), true
}

// Get returns a snapshot of the collection.
func (r *Registry) Get(id string) (Collection, error) {
	e, ok := r.load(id)
	if !ok {
		return Collection{}, ErrCollectionNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.deleted {
		return Collection{}, ErrCollectionNotFound
	}

	return e.snapshot(), nil
}

// FindByName returns the oldest collection with the given name.
func (r *Registry) FindByName(name string) (Collection, error) {
	name = strings.TrimSpace(name)

	for _, c := range r.List() {
		if c.Name == name {
			return c, nil
		}
	}

	return Collection{}, ErrCollectionNotFound
}

// List returns all collections ordered by creation time, then ID.
func (r *Registry) List() []Collection {
	var out []Collection

	r.entries.Range(func(_, v any) bool {
		e := v.(*entry)

		e.mu.RLock()
		if !e.deleted {
			out = append(out, e.snapshot())
		}
		e.mu.RUnlock()

		return true
	})

	slices.SortFunc(out, func(a, b Collection) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// Len returns the number of collections.
func (r *Registry) Len() int {
	n := 0

	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

// DeleteCollection removes a collection and releases its records.
// It returns false if the collection does not exist.
func (r *Registry) DeleteCollection(id string) bool {
	v, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return false
	}

	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.deleted = true
	e.index = nil
	e.records = nil
	e.byID = nil
	e.live = roaring.New()
	e.metaIndex = metadata.NewUnifiedIndex()

	r.logger.Debug("collection deleted", "collection_id", id)

	return true
}

// Insert stores a vector and returns its record. The vector must match the
// collection dimension.
func (r *Registry) Insert(ctx context.Context, collectionID string, vec []float32, doc metadata.Document) (Record, error) {
	recs, err := r.InsertBatch(ctx, collectionID, []Item{{Vector: vec, Metadata: doc}})
	if err != nil {
		return Record{}, err
	}

	return recs[0], nil
}

// InsertBatch stores several vectors under one lock. Every vector is
// validated, and ctx checked, before any is inserted; once inserting
// starts the batch is not cancellable.
func (r *Registry) InsertBatch(ctx context.Context, collectionID string, items []Item) ([]Record, error) {
	e, ok := r.load(collectionID)
	if !ok {
		return nil, ErrCollectionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, ErrCollectionNotFound
	}

	for _, it := range items {
		if len(it.Vector) != e.meta.Dimension {
			return nil, &ErrDimensionMismatch{Expected: e.meta.Dimension, Actual: len(it.Vector)}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	now := r.opts.Now()
	out := make([]Record, 0, len(items))

	for _, it := range items {
		internalID, err := e.index.Insert(ctx, it.Vector)
		if err != nil {
			if len(out) > 0 {
				e.meta.Updated = now
			}

			return out, err
		}

		rec := Record{
			ID:         uuid.NewString(),
			InternalID: internalID,
			Vector:     slices.Clone(it.Vector),
			Metadata:   it.Metadata.Clone(),
			Created:    now,
		}

		if int(internalID) != len(e.records) {
			return out, fmt.Errorf("registry: index id %d out of step with %d records", internalID, len(e.records))
		}

		e.records = append(e.records, rec)
		e.byID[rec.ID] = internalID
		e.live.Add(internalID)
		e.metaIndex.Set(internalID, rec.Metadata)
		e.contentHash ^= recordDigest(rec)

		out = append(out, rec.clone())
	}

	if len(out) > 0 {
		e.meta.Updated = now
	}

	return out, nil
}

// GetRecord returns a live record by ID.
func (r *Registry) GetRecord(collectionID, recordID string) (Record, error) {
	e, ok := r.load(collectionID)
	if !ok {
		return Record{}, ErrCollectionNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.deleted {
		return Record{}, ErrCollectionNotFound
	}

	internalID, ok := e.byID[recordID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}

	return e.records[internalID].clone(), nil
}

// DeleteRecord tombstones a record. It returns false if the collection or
// record does not exist.
func (r *Registry) DeleteRecord(collectionID, recordID string) bool {
	e, ok := r.load(collectionID)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return false
	}

	internalID, ok := e.byID[recordID]
	if !ok {
		return false
	}

	delete(e.byID, recordID)
	e.live.Remove(internalID)
	e.metaIndex.Delete(internalID)
	e.contentHash ^= recordDigest(e.records[internalID])
	e.meta.Updated = r.opts.Now()

	return true
}

// ListRecords returns live records in insertion order.
func (r *Registry) ListRecords(collectionID string, limit, offset int) (Page, error) {
	if limit < 0 || offset < 0 {
		return Page{}, ErrInvalidArgument
	}

	e, ok := r.load(collectionID)
	if !ok {
		return Page{}, ErrCollectionNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.deleted {
		return Page{}, ErrCollectionNotFound
	}

	total := int(e.live.GetCardinality())
	page := Page{Total: total}

	if offset < total && limit > 0 {
		first, err := e.live.Select(uint32(offset))
		if err != nil {
			return Page{}, err
		}

		it := e.live.Iterator()
		it.AdvanceIfNeeded(first)

		for it.HasNext() && len(page.Records) < limit {
			page.Records = append(page.Records, e.records[it.Next()].clone())
		}
	}

	page.HasMore = offset+len(page.Records) < total

	return page, nil
}

// Stats describes the index and metadata state of a collection.
type Stats struct {
	Collection Collection
	Index      hnsw.Stats
	Metadata   metadata.Stats
	Tombstones int
}

// Stats returns index and metadata statistics for a collection.
func (r *Registry) Stats(collectionID string) (Stats, error) {
	e, ok := r.load(collectionID)
	if !ok {
		return Stats{}, ErrCollectionNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.deleted {
		return Stats{}, ErrCollectionNotFound
	}

	c := e.snapshot()

	return Stats{
		Collection: c,
		Index:      e.index.Stats(),
		Metadata:   e.metaIndex.GetStats(),
		Tombstones: len(e.records) - c.LiveCount,
	}, nil
}

func recordDigest(rec Record) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(rec.ID)

	var buf [4]byte
	for _, f := range rec.Vector {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		_, _ = d.Write(buf[:])
	}

	return d.Sum64()
}

func formatHash(h uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)

	return hex.EncodeToString(buf[:])
}
