package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps snapshots in an embedded BadgerDB under "room:<id>".
type BadgerStore[T Aggregate] struct {
	db    *badger.DB
	codec Codec[T]
}

func NewBadgerStore[T Aggregate](db *badger.DB, aggregateType string) *BadgerStore[T] {
	return &BadgerStore[T]{db: db, codec: NewCodec[T](aggregateType)}
}

// OpenBadger opens the database directory at path with quiet logging.
func OpenBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger %s: %w", path, err)
	}
	return db, nil
}

func badgerKey(id string) []byte {
	return []byte("room:" + id)
}

func (s *BadgerStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	var zero T
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s: %w", id, err)
	}

	agg, _, err := s.codec.Unmarshal(data)
	if err != nil {
		return zero, false, err
	}
	return agg, true, nil
}

func (s *BadgerStore[T]) Save(ctx context.Context, agg T) error {
	data, err := s.codec.Marshal(agg)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := badgerKey(agg.GetID())
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var stored struct {
				Version int `json:"version"`
			}
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &stored) }); err != nil {
				return fmt.Errorf("failed to read stored version of %s: %w", agg.GetID(), err)
			}
			if err := checkVersion(stored.Version, agg.GetVersion()); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
}
