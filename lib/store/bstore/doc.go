// Package bstore implements a bridged, process-local key-value store. It
// provides a thread-safe implementation of the store.IStore interface on top
// of a blocking, single-caller storage engine (see lib/db) by funneling all
// operations through one FIFO queue and one worker goroutine.
//
// Architecture:
//
// The bstore implementation consists of three main components:
//
//   - Store Facade: Implements the store.IStore interface. Every call packs
//     its operation into a work item, enqueues it and blocks on the item's
//     completion slot until the worker resolves it or the caller's context
//     fires.
//
//   - Work Queue: A lock-free MPSC queue (internal package) that preserves
//     enqueue order. An optional capacity bound turns overload into fast
//     CodeBusy failures instead of unbounded queue growth.
//
//   - Serial Worker: One goroutine per store that drains the queue and is
//     the only code that ever touches the engine handle. Engines are free
//     to be blocking and non-reentrant; the worker's serialization is what
//     provides the thread safety.
//
// Execution Model:
//
//	All operations follow this flow:
//
//	1. The facade checks the store state and fails fast with CodeClosed
//	   once closing has begun
//	2. The operation is packed into an item with a one-shot completion slot
//	3. The item is pushed onto the queue (CodeBusy when the bound is hit)
//	4. The worker dequeues items in FIFO order and executes them one at a
//	   time against the engine
//	5. The result is resolved into the completion slot and the facade
//	   returns it to the caller
//
// Cancellation:
//
//	Callers wait on their item and their context simultaneously. When the
//	context fires first the item is withdrawn: an item still waiting in the
//	queue is skipped by the worker and never touches the engine, while an
//	item the worker already started runs to completion and its result is
//	discarded. The engine therefore never observes a half-executed
//	operation. Either way the caller returns promptly with CodeCancelled.
//
// Shutdown:
//
//	The first Close call enqueues a close item as the final operation and
//	shuts the queue. Operations already queued ahead of it execute
//	normally, then the worker closes the engine handle, fails everything
//	queued behind the close item with CodeClosed, deregisters the path and
//	stops. Close may be called any number of times from any goroutine:
//	every call blocks until the worker has stopped, the first call reports
//	the engine's close error, later calls return nil.
//
// Usage Example:
//
//	  store, err := bstore.Open("/var/data/app.db", db.ModeCreate, nil)
//	  if err != nil { ... }
//	  defer store.Close(context.Background())
//
//	  // safe from any number of goroutines
//	  err = store.Set(ctx, []byte("key"), []byte("value"))
//	  value, err := store.Get(ctx, []byte("key"))
//
//	  // or scoped, closing included:
//	  err = bstore.With("/var/data/app.db", db.ModeCreate, nil,
//	      func(s store.IStore) error {
//	          return s.Set(ctx, []byte("key"), []byte("value"))
//	      })
//
// Performance Considerations:
//
//   - Serialization Cost: Operations execute strictly one at a time. The
//     bridge adds queue handoff latency but no engine-side contention,
//     which is usually a net win for blocking engines.
//
//   - Queue Bound: An unbounded queue (the default) favors throughput; a
//     bound favors predictable memory use and backpressure via CodeBusy.
//
// Limitations:
//
//   - Single Process: The registry enforces one open handle per path within
//     this process only. Cross-process exclusion is up to the engine.
//   - No Transactions: Operations are individually atomic. The only
//     composed operation is SetDefault, which runs its lookup and insert
//     as one queued item.
//
// For a distributed, replicated implementation of the same interface, a
// consensus layer can be placed behind store.IStore instead; bstore stays
// deliberately process-local.
package bstore
