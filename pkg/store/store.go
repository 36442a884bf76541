// Package store provides the public, concurrency-safe key/value data store
// built on the internal persistency engine. It combines an in-memory key
// index with two files on disk — an entries file and a data file, whose
// freed space is reused and compacted — to achieve durable, crash-tolerant
// storage for applications such as caching, session management, and
// embedded configuration stores.
package store

import (
	"context"
	"sync"

	"github.com/iamNilotpal/emberstore/internal/directory"
	"github.com/iamNilotpal/emberstore/internal/engine"
	"github.com/iamNilotpal/emberstore/pkg/options"
)

// Store is the primary entry point for interacting with an emberstore
// instance, providing methods for setting, getting, deleting, and
// iterating over key-value pairs. The underlying engine is single
// threaded, so Store serializes every operation behind a mutex.
type Store struct {
	mu     sync.Mutex
	engine *engine.Engine
}

// Open opens (creating if necessary) a store backed by the folder and other
// settings described by opts.
func Open(opts ...options.OptionFunc) (*Store, error) {
	eng, err := engine.Open(opts...)
	if err != nil {
		return nil, err
	}
	return &Store{engine: eng}, nil
}

// Set stores value under key, superseding any prior value for the same key.
// The operation is durable: both the value and the entry referencing it are
// fsynced before Set returns.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Set(key, value)
}

// Get retrieves the value currently associated with key. The second return
// value is false if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Get(key)
}

// Delete removes key, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Delete(key)
}

// Count returns the number of distinct live keys.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Count()
}

// AllocatedRanges reports the coalesced allocated byte ranges of the
// entries and data files, for diagnostics and testing.
func (s *Store) AllocatedRanges() (entries, data []directory.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AllocatedRanges()
}

// Cursor returns a lazy, non-restartable snapshot iterator over the keys
// live at the moment it is created. Calling Next holds
// the store's lock only for the duration of reading a single value, so
// other operations can interleave between calls.
func (s *Store) Cursor() *Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Cursor{store: s, inner: s.engine.Cursor()}
}

// Cursor wraps the internal engine cursor with the store's locking
// discipline.
type Cursor struct {
	store *Store
	inner *engine.Cursor
}

// Next advances the cursor, returning the next surviving (key, value) pair.
func (c *Cursor) Next(ctx context.Context) (key string, value []byte, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", nil, false, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.inner.Next(ctx)
}

// ForEach drains the cursor, calling fn once per surviving pair.
func (c *Cursor) ForEach(fn func(key string, value []byte) error) error {
	ctx := context.Background()
	for {
		key, value, ok, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

// Close gracefully shuts down the store, cancelling the reclamation timer,
// running any final compaction and truncation, and closing both files.
// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Close()
}
