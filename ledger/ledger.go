// Package ledger mirrors collection metadata into an external ledger and
// restores it on startup.
//
// A Ledger stores descriptive metadata and counts only, never vectors.
// The Syncer pushes changes asynchronously so that ledger latency or
// outages never delay or fail local operations.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the ledger has no entry for a collection.
	ErrNotFound = errors.New("ledger: collection not found")

	// ErrUnavailable marks deliveries that failed after all retries.
	ErrUnavailable = errors.New("ledger: unavailable")
)

// CollectionInfo is the metadata the ledger keeps per collection.
type CollectionInfo struct {
	ID          string    `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	Description string    `json:"description,omitempty" msgpack:"description"`
	Dimension   int       `json:"dimension" msgpack:"dimension"`
	Metric      string    `json:"metric,omitempty" msgpack:"metric"`
	IsPublic    bool      `json:"is_public" msgpack:"is_public"`
	RecordCount int       `json:"record_count" msgpack:"record_count"`
	ContentHash string    `json:"content_hash,omitempty" msgpack:"content_hash"`
	Created     time.Time `json:"created" msgpack:"created"`
	Updated     time.Time `json:"updated" msgpack:"updated"`
}

// CollectionUpdate carries the fields that change as records are written.
type CollectionUpdate struct {
	ID          string
	RecordCount int
	ContentHash string
	Updated     time.Time
}

// Apply returns info with the update applied.
func (u CollectionUpdate) Apply(info CollectionInfo) CollectionInfo {
	info.RecordCount = u.RecordCount
	info.ContentHash = u.ContentHash

	if !u.Updated.IsZero() {
		info.Updated = u.Updated
	}

	return info
}

// Ledger is the external metadata store.
type Ledger interface {
	CreateCollection(ctx context.Context, info CollectionInfo) error
	// UpdateCollection returns ErrNotFound for unknown collections.
	UpdateCollection(ctx context.Context, update CollectionUpdate) error
	DeleteCollection(ctx context.Context, id string) error
	ListCollections(ctx context.Context) ([]string, error)
	// GetCollection returns ErrNotFound for unknown collections.
	GetCollection(ctx context.Context, id string) (CollectionInfo, error)
}
