package bstore

import (
	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/db/engines/badger"
	"github.com/bkv-project/bKV/lib/db/engines/bolt"
	"github.com/bkv-project/bKV/lib/db/engines/flat"
)

// Options configures a bridged store.
type Options struct {
	// Engine picks the storage engine. The zero value (db.ImplUnknown)
	// auto-detects existing stores and falls back to the bolt engine when
	// creating new ones.
	Engine db.Implementation

	// QueueSize bounds the number of operations waiting for the worker.
	// Once the bound is reached further calls fail with CodeBusy instead
	// of queueing up. 0 leaves the queue unbounded.
	QueueSize int

	// Engine-specific tuning, nil for the engine's defaults.
	Bolt   *bolt.Options
	Badger *badger.Options
	Flat   *flat.Options
}

// DefaultOptions returns the default store options: auto-detected engine,
// unbounded queue.
func DefaultOptions() *Options {
	return &Options{}
}
