package dedupe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const badgerSeenPrefix = "seen/"

// BadgerStore keeps each identifier as a key under the seen/ prefix.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Load(ctx context.Context) (SeenSet, error) {
	if err := ctx.Err(); err != nil {
		return SeenSet{}, err
	}
	seen := NewSeenSet()
	err := b.db.View(func(txn *badger.Txn) error {
		for _, key := range b.keys(txn) {
			seen.Add(strings.TrimPrefix(key, badgerSeenPrefix))
		}
		return nil
	})
	if err != nil {
		return SeenSet{}, fmt.Errorf("read seen ids: %w", err)
	}
	return seen, nil
}

// Save deletes stale keys and writes the current ones in a single update.
func (b *BadgerStore) Save(ctx context.Context, seen SeenSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, key := range b.keys(txn) {
			if seen.Contains(strings.TrimPrefix(key, badgerSeenPrefix)) {
				continue
			}
			if err := txn.Delete([]byte(key)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		for _, id := range seen.IDs() {
			if err := txn.Set([]byte(badgerSeenPrefix+id), []byte{}); err != nil {
				return fmt.Errorf("set %s: %w", id, err)
			}
		}
		return nil
	})
}

func (b *BadgerStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BadgerStore) keys(txn *badger.Txn) []string {
	var keys []string
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(badgerSeenPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys
}
