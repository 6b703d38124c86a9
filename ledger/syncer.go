package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// SyncOptions configures a Syncer.
type SyncOptions struct {
	// QueueSize bounds pending events. A full queue drops new events.
	QueueSize int

	// MaxAttempts is the number of delivery attempts per event.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// AttemptTimeout bounds a single ledger call.
	AttemptTimeout time.Duration

	// RateLimit caps ledger calls per second. Zero means unlimited.
	RateLimit rate.Limit
	Burst     int

	Logger *slog.Logger
}

// DefaultSyncOptions contains the default options for a Syncer.
var DefaultSyncOptions = SyncOptions{
	QueueSize:      256,
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	AttemptTimeout: 10 * time.Second,
	Burst:          1,
}

type eventKind int

const (
	eventCreate eventKind = iota
	eventUpdate
	eventDelete
)

func (k eventKind) String() string {
	switch k {
	case eventCreate:
		return "create"
	case eventUpdate:
		return "update"
	case eventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type event struct {
	kind   eventKind
	info   CollectionInfo
	update CollectionUpdate
	id     string
}

func (e event) collectionID() string {
	switch e.kind {
	case eventCreate:
		return e.info.ID
	case eventUpdate:
		return e.update.ID
	default:
		return e.id
	}
}

// SyncStats reports delivery counters.
type SyncStats struct {
	Sent    uint64
	Failed  uint64
	Dropped uint64
	Pending int
}

// Syncer delivers collection changes to a Ledger from a background worker.
// Notify methods never block. Events are delivered in order.
type Syncer struct {
	ledger  Ledger
	opts    SyncOptions
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.RWMutex // guards queue send against close
	closed bool
	queue  chan event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewSyncer starts a Syncer for l.
func NewSyncer(l Ledger, optFns ...func(o *SyncOptions)) *Syncer {
	opts := DefaultSyncOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultSyncOptions.QueueSize
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultSyncOptions.InitialBackoff
	}

	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}

	limit := opts.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}

	burst := max(opts.Burst, 1)

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Syncer{
		ledger:  l,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		queue:   make(chan event, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.run()

	return s
}

// NotifyCreate queues a collection creation.
func (s *Syncer) NotifyCreate(info CollectionInfo) {
	s.enqueue(event{kind: eventCreate, info: info})
}

// NotifyUpdate queues a record count and content hash change.
func (s *Syncer) NotifyUpdate(update CollectionUpdate) {
	s.enqueue(event{kind: eventUpdate, update: update})
}

// NotifyDelete queues a collection deletion.
func (s *Syncer) NotifyDelete(id string) {
	s.enqueue(event{kind: eventDelete, id: id})
}

func (s *Syncer) enqueue(ev event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
		s.logger.Warn("ledger queue full, dropping event", "event", ev.kind.String(), "collection_id", ev.collectionID())
	}
}

// Stats returns delivery counters.
func (s *Syncer) Stats() SyncStats {
	return SyncStats{
		Sent:    s.sent.Load(),
		Failed:  s.failed.Load(),
		Dropped: s.dropped.Load(),
		Pending: len(s.queue),
	}
}

// Close stops accepting events and waits for queued events to be delivered.
// If ctx ends first, pending deliveries are abandoned and ctx.Err() is returned.
func (s *Syncer) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-s.done

		return ctx.Err()
	}
}

func (s *Syncer) run() {
	defer close(s.done)

	for ev := range s.queue {
		if s.ctx.Err() != nil {
			s.dropped.Add(1)
			continue
		}

		s.deliver(ev)
	}
}

func (s *Syncer) deliver(ev event) {
	backoff := s.opts.InitialBackoff

	var err error

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err = s.limiter.Wait(s.ctx); err != nil {
			break
		}

		err = s.apply(ev)
		if err == nil {
			s.sent.Add(1)
			return
		}

		if errors.Is(err, ErrNotFound) || s.ctx.Err() != nil {
			break
		}

		if attempt == s.opts.MaxAttempts {
			break
		}

		s.logger.Debug("ledger delivery failed, retrying", "event", ev.kind.String(), "collection_id", ev.collectionID(), "attempt", attempt, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
		}

		backoff = min(backoff*2, s.opts.MaxBackoff)
	}

	s.failed.Add(1)
	s.logger.Warn("ledger delivery failed", "event", ev.kind.String(), "collection_id", ev.collectionID(), "error", fmt.Errorf("%w: %w", ErrUnavailable, err))
}

func (s *Syncer) apply(ev event) error {
	ctx := s.ctx

	if s.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AttemptTimeout)

		defer cancel()
	}

	switch ev.kind {
	case eventCreate:
		return s.ledger.CreateCollection(ctx, ev.info)
	case eventUpdate:
		return s.ledger.UpdateCollection(ctx, ev.update)
	case eventDelete:
		return s.ledger.DeleteCollection(ctx, ev.id)
	default:
		return fmt.Errorf("unknown ledger event %d", ev.kind)
	}
}

// Target receives collections restored from the ledger.
type Target interface {
	// Has reports whether the collection already exists locally.
	Has(id string) bool
	// Restore registers a shadow collection.
	Restore(info CollectionInfo) error
}

// Rehydrate restores collections known to the ledger but missing from t.
// It returns the number of collections restored. Entries that cannot be
// fetched or restored are logged and skipped; only a failure to list the
// ledger is returned as an error.
func (s *Syncer) Rehydrate(ctx context.Context, t Target) (int, error) {
	ids, err := s.ledger.ListCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	restored := 0

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return restored, err
		}

		if t.Has(id) {
			continue
		}

		info, err := s.ledger.GetCollection(ctx, id)
		if err != nil {
			s.logger.Warn("failed to fetch collection from ledger", "collection_id", id, "error", err)
			continue
		}

		if err := t.Restore(info); err != nil {
			s.logger.Warn("failed to restore collection", "collection_id", id, "error", err)
			continue
		}

		restored++
	}

	s.logger.Info("rehydrated collections from ledger", "listed", len(ids), "restored", restored)

	return restored, nil
}
