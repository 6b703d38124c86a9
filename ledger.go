package vecdb

import (
	"context"
	"errors"

	"github.com/hupe1980/vecdb/distance"
	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/ledger"
)

func (db *DB) notifyCreate(c Collection) {
	if db.syncer == nil {
		return
	}

	db.syncer.NotifyCreate(ledger.CollectionInfo{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Dimension:   c.Dimension,
		Metric:      c.Metric.String(),
		IsPublic:    c.IsPublic,
		RecordCount: c.RecordCount,
		ContentHash: c.ContentHash,
		Created:     c.Created,
		Updated:     c.Updated,
	})
}

// notifyUpdate queues the current count and content hash of a collection.
func (db *DB) notifyUpdate(collectionID string) {
	if db.syncer == nil {
		return
	}

	c, err := db.reg.Get(collectionID)
	if err != nil {
		// Deleted concurrently; the delete event supersedes this update.
		return
	}

	db.syncer.NotifyUpdate(ledger.CollectionUpdate{
		ID:          c.ID,
		RecordCount: c.RecordCount,
		ContentHash: c.ContentHash,
		Updated:     c.Updated,
	})
}

// Rehydrate restores collections known to the ledger but missing locally.
// Restored collections are empty shadows whose RecordCount carries the
// ledger's count; their vectors have to be re-inserted. Rehydrate returns
// the number of collections restored and is a no-op without a ledger.
func (db *DB) Rehydrate(ctx context.Context) (int, error) {
	if db.closed.Load() {
		return 0, ErrClosed
	}

	if db.syncer == nil {
		return 0, nil
	}

	n, err := db.syncer.Rehydrate(ctx, rehydrateTarget{db})
	db.logger.LogRehydrate(ctx, n, err)

	return n, err
}

type rehydrateTarget struct {
	db *DB
}

func (t rehydrateTarget) Has(id string) bool {
	if _, dropped := t.db.dropped.Load(id); dropped {
		return true
	}

	_, err := t.db.reg.Get(id)

	return err == nil
}

func (t rehydrateTarget) Restore(info ledger.CollectionInfo) error {
	metric, err := distance.ParseMetric(info.Metric)
	if err != nil {
		return err
	}

	_, created, err := t.db.reg.Shadow(registry.Collection{
		ID:          info.ID,
		Name:        info.Name,
		Description: info.Description,
		IsPublic:    info.IsPublic,
		Dimension:   info.Dimension,
		Metric:      metric,
		RecordCount: info.RecordCount,
		ContentHash: info.ContentHash,
		Created:     info.Created,
		Updated:     info.Updated,
	})
	if err != nil {
		return translateError(err)
	}

	if !created {
		return errAlreadyPresent
	}

	return nil
}

var errAlreadyPresent = errors.New("collection already present")
