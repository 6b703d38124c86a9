package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/vecdb/codec"
)

var collectionPrefix = []byte("collection/")

// BadgerOptions configures the Badger ledger.
type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps all data in memory. Useful for tests.
	InMemory bool

	// Codec encodes new entries. Defaults to codec.Msgpack. Entries are
	// tagged with their codec, so existing entries stay readable when it
	// changes.
	Codec codec.Codec

	Logger *slog.Logger
}

// Badger is a Ledger persisted in a local BadgerDB. It lets a single node
// survive restarts without an external service.
type Badger struct {
	db    *badger.DB
	codec codec.Codec
}

var _ Ledger = (*Badger)(nil)

// NewBadger opens a Badger ledger.
func NewBadger(optFns ...func(o *BadgerOptions)) (*Badger, error) {
	opts := BadgerOptions{Codec: codec.Msgpack{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("ledger: badger dir is required for on-disk mode")
	}

	if opts.Codec == nil {
		opts.Codec = codec.Msgpack{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger: logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Badger{db: db, codec: opts.Codec}, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func collectionKey(id string) []byte {
	return append(append([]byte{}, collectionPrefix...), id...)
}

// CreateCollection implements Ledger. Existing entries are replaced.
func (b *Badger) CreateCollection(_ context.Context, info CollectionInfo) error {
	data, err := codec.Encode(b.codec, info)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(collectionKey(info.ID), data)
	})
}

// UpdateCollection implements Ledger.
func (b *Badger) UpdateCollection(_ context.Context, update CollectionUpdate) error {
	return b.db.Update(func(txn *badger.Txn) error {
		info, err := b.get(txn, update.ID)
		if err != nil {
			return err
		}

		data, err := codec.Encode(b.codec, update.Apply(info))
		if err != nil {
			return err
		}

		return txn.Set(collectionKey(update.ID), data)
	})
}

// DeleteCollection implements Ledger.
func (b *Badger) DeleteCollection(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(collectionKey(id))
	})
}

// ListCollections implements Ledger. IDs are returned in key order.
func (b *Badger) ListCollections(ctx context.Context) ([]string, error) {
	var ids []string

	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = collectionPrefix
		iterOpts.PrefetchValues = false

		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(collectionPrefix); it.ValidForPrefix(collectionPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := it.Item().Key()
			ids = append(ids, string(key[len(collectionPrefix):]))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// GetCollection implements Ledger.
func (b *Badger) GetCollection(_ context.Context, id string) (CollectionInfo, error) {
	var info CollectionInfo

	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		info, err = b.get(txn, id)

		return err
	})

	return info, err
}

func (b *Badger) get(txn *badger.Txn, id string) (CollectionInfo, error) {
	item, err := txn.Get(collectionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return CollectionInfo{}, ErrNotFound
	}

	if err != nil {
		return CollectionInfo{}, err
	}

	var info CollectionInfo

	err = item.Value(func(val []byte) error {
		return codec.Decode(val, &info)
	})

	return info, err
}

// badgerLogger routes badger's log output to slog, dropping debug noise.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.logger.Error(fmt.Sprintf("badger: "+f, v...))
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.logger.Warn(fmt.Sprintf("badger: "+f, v...))
}

func (l badgerLogger) Infof(f string, v ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+f, v...))
}

func (badgerLogger) Debugf(string, ...any) {}
