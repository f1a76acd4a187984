// Package badger provides a Badger-backed cache store with native TTL
// support and prefix scans.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/cache"
)

// Store implements cache.Store on an embedded Badger database.
type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

// Config holds configuration for the Badger cache store.
type Config struct {
	// Path is the directory for the Badger value log and LSM tree.
	// Empty selects a purely in-memory database.
	Path string
}

// NewStore opens (or creates) the Badger database at the configured path.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	opts := badgerdb.DefaultOptions(c.Path)
	if c.Path == "" {
		opts = opts.WithInMemory(true)
	}
	// Badger's own logger writes through stderr; routing it through zap
	// keeps service output in one stream.
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger at %q: %v", cache.ErrConnection, c.Path, err)
	}

	logger.Info("badger cache store opened",
		zap.String("path", c.Path),
		zap.Bool("in_memory", c.Path == ""),
	)

	return &Store{db: db, logger: logger}, nil
}

// Set stores a value under key with the given TTL. A zero TTL stores the
// entry without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get retrieves the value for key. Expired entries surface as ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("badger get %q: %w", key, err)
	}
	return value, nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// KeysByPrefix returns all live keys with the given prefix.
func (s *Store) KeysByPrefix(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger prefix scan %q: %w", prefix, err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ cache.Store = (*Store)(nil)
