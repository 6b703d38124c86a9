package vecdb

import "context"

// Close stops accepting operations and waits for queued ledger writes to
// be delivered, or for ctx to end. Closing twice is a no-op.
func (db *DB) Close(ctx context.Context) error {
	if db == nil || !db.closed.CompareAndSwap(false, true) {
		return nil
	}

	if db.syncer != nil {
		return db.syncer.Close(ctx)
	}

	return nil
}
