package store

import (
	"context"

	"github.com/bkv-project/bKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with a key-value store
// from concurrent callers. Implementations serialize access to the
// underlying engine, so any number of goroutines may call these methods at
// the same time.
//
// All operations accept a context. Cancelling it releases the calling
// goroutine: an operation still waiting in line is skipped entirely, one
// that already reached the engine runs to completion with its result
// discarded. Either way the engine never observes a half-executed call.
//
// Errors carry a db.Code. After Close has begun every call fails with
// CodeClosed.
type IStore interface {
	// Set inserts or updates a key-value pair.
	Set(ctx context.Context, key, value []byte) (err error)
	// SetDefault inserts value if the key is absent. It returns the value
	// stored under the key afterwards and loaded=true if the key already
	// existed.
	SetDefault(ctx context.Context, key, value []byte) (actual []byte, loaded bool, err error)
	// Get returns the value for a key, or a CodeNotFound error if absent.
	Get(ctx context.Context, key []byte) (value []byte, err error)
	// GetDefault returns the value for a key, or fallback if the key is
	// absent. The store is not modified.
	GetDefault(ctx context.Context, key, fallback []byte) (value []byte, err error)
	// Delete removes a key-value pair. Deleting an absent key returns a
	// CodeNotFound error.
	Delete(ctx context.Context, key []byte) (err error)
	// Has returns whether a key exists in the store.
	Has(ctx context.Context, key []byte) (loaded bool, err error)
	// Len returns the number of entries in the store.
	Len(ctx context.Context) (n int, err error)
	// Keys returns an iterator over a point-in-time snapshot of all keys.
	// Later mutations do not affect an iterator already handed out.
	Keys(ctx context.Context) (it *KeyIterator, err error)
	// FirstKey returns the first key in the engine's traversal order, with
	// ok=false on an empty store. Requires db.FeatureFirstNext.
	FirstKey(ctx context.Context) (key []byte, ok bool, err error)
	// NextKey returns the key following after in the engine's traversal
	// order, with ok=false when after was the last key.
	// Requires db.FeatureFirstNext.
	NextKey(ctx context.Context, after []byte) (key []byte, ok bool, err error)
	// Sync flushes pending writes to stable storage.
	// Requires db.FeatureSync.
	Sync(ctx context.Context) (err error)
	// Reorganize compacts the store and reclaims unused space.
	// Requires db.FeatureReorganize.
	Reorganize(ctx context.Context) (err error)
	// Info returns metadata about the engine underlying the store.
	// It is not guaranteed that all fields are filled in!
	Info(ctx context.Context) (info db.Info, err error)
	// Close flushes and closes the underlying engine. The first call
	// reports the engine's close error, every further call returns nil.
	// All calls block until the store has fully stopped.
	Close(ctx context.Context) (err error)
}

// --------------------------------------------------------------------------
// Key Iterator
// --------------------------------------------------------------------------

// KeyIterator walks a finite snapshot of keys. It is not restartable and
// not safe for concurrent use; each caller should request its own.
type KeyIterator struct {
	keys [][]byte
	pos  int
}

// NewKeyIterator creates an iterator over keys. The iterator takes ownership
// of the slice.
func NewKeyIterator(keys [][]byte) *KeyIterator {
	return &KeyIterator{keys: keys}
}

// Next returns the next key, or ok=false once the snapshot is exhausted.
// After exhaustion every further call returns ok=false.
func (it *KeyIterator) Next() (key []byte, ok bool) {
	if it.pos >= len(it.keys) {
		return nil, false
	}
	key = it.keys[it.pos]
	it.keys[it.pos] = nil // free as we go
	it.pos++
	return key, true
}

// Remaining returns the number of keys not yet consumed.
func (it *KeyIterator) Remaining() int {
	return len(it.keys) - it.pos
}
