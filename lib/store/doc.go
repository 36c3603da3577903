// Package store provides a high-level, concurrency-safe interface for
// key-value storage operations with context support and unified error
// handling. It serves as an abstraction layer over the lower-level db.Store
// engines, which are blocking and must never be called from more than one
// goroutine.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations across different backends
//   - Decoupling concurrent callers from the single-goroutine engine contract
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for
//     interacting with a key-value store from concurrent goroutines. All
//     implementations share this common interface, allowing applications to
//     switch between backends without code changes. Every method takes a
//     context so callers can stop waiting without corrupting the store.
//
//   - KeyIterator: A finite, non-restartable iterator over a point-in-time
//     key snapshot, decoupling key traversal from the store's internal
//     synchronization.
//
//   - Error System: All errors carry a db.Code, so applications can make
//     informed decisions based on specific error conditions (closed, busy,
//     cancelled, not found) rather than generic errors.
//
// Implementations:
//
//	The bridged store (bstore) is the package's reference implementation.
//	It funnels all operations through a single worker goroutine that owns
//	the engine handle exclusively, making any db.Store safe for concurrent
//	use without the engine itself needing locks.
//	Available in the "github.com/bkv-project/bKV/lib/store/bstore" package.
package store
