package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"video-annotator/internal/annotation"
)

const badgerPrefix = "ann:"

// BadgerStore keeps annotations in an embedded badger database:
// key = "ann:<id>", value = the JSON document.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the badger directory at path. An
// empty path opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(id string) []byte {
	return []byte(badgerPrefix + id)
}

// List scans the prefix and sorts in memory; badger has no secondary index.
func (s *BadgerStore) List(ctx context.Context, filter ListFilter) ([]annotation.Annotation, error) {
	list := []annotation.Annotation{}
	prefix := []byte(badgerPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec annotation.Annotation
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("failed to decode annotation: %w", err)
			}
			if filter.match(rec) {
				list = append(list, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRecords(list)
	return list, nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*annotation.Annotation, error) {
	var out annotation.Annotation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *BadgerStore) Create(ctx context.Context, rec *annotation.Annotation) error {
	stamp(rec, clock())
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.ID), buf)
	})
}

func (s *BadgerStore) Update(ctx context.Context, id string, patch annotation.Patch) (*annotation.Annotation, error) {
	key := badgerKey(id)
	var out annotation.Annotation
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var current annotation.Annotation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &current)
		}); err != nil {
			return err
		}
		out = patch.Apply(current)
		out.UpdatedAt = clock()
		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	key := badgerKey(id)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	return notFound(err)
}

// Ping fails once the database has been closed.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
