package internal

import (
	"fmt"
	"sync/atomic"

	"github.com/bkv-project/bKV/lib/db"
)

// --------------------------------------------------------------------------
// Operation Types
// --------------------------------------------------------------------------

// Op defines the possible operations a work item can carry to the worker.
type Op uint8

const (
	OpGet        Op = iota // Read the value of an entry.
	OpSet                  // Insert or update an entry.
	OpSetDefault           // Insert an entry if it does not exist, return the stored value.
	OpDelete               // Delete an entry.
	OpHas                  // Check whether an entry exists.
	OpLen                  // Count all entries.
	OpKeys                 // Snapshot all keys.
	OpFirstKey             // Read the first key in traversal order.
	OpNextKey              // Read the key following a given key.
	OpSync                 // Flush pending writes.
	OpReorganize           // Compact the store.
	OpInfo                 // Read engine metadata.
	OpClose                // Close the engine, the final item of a store.
)

func (op Op) String() string {
	switch op {
	case OpGet:
		return "Get"
	case OpSet:
		return "Set"
	case OpSetDefault:
		return "SetDefault"
	case OpDelete:
		return "Delete"
	case OpHas:
		return "Has"
	case OpLen:
		return "Len"
	case OpKeys:
		return "Keys"
	case OpFirstKey:
		return "FirstKey"
	case OpNextKey:
		return "NextKey"
	case OpSync:
		return "Sync"
	case OpReorganize:
		return "Reorganize"
	case OpInfo:
		return "Info"
	case OpClose:
		return "Close"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// RequiredFeatures returns the db features an engine must support to execute
// the operation. Zero means the operation is always allowed. This can be
// used for checking support before the engine is ever touched.
func (op Op) RequiredFeatures() db.Feature {
	switch op {
	case OpGet:
		return db.FeatureGet
	case OpSet:
		return db.FeatureSet
	case OpSetDefault:
		return db.FeatureGet | db.FeatureSet
	case OpDelete:
		return db.FeatureDelete
	case OpHas:
		return db.FeatureHas
	case OpLen:
		return db.FeatureLen
	case OpKeys:
		return db.FeatureKeys
	case OpFirstKey, OpNextKey:
		return db.FeatureFirstNext
	case OpSync:
		return db.FeatureSync
	case OpReorganize:
		return db.FeatureReorganize
	default:
		// OpInfo and OpClose work on every engine
		return 0
	}
}

// --------------------------------------------------------------------------
// Result Payloads
// --------------------------------------------------------------------------

// Result carries the outcome of one executed item. Payload holds the
// operation-specific value and is nil for pure write operations.
type Result struct {
	Payload interface{}
	Err     error
}

// ValueResult is the payload of OpSetDefault.
type ValueResult struct {
	Value  []byte
	Loaded bool
}

// KeyResult is the payload of OpFirstKey and OpNextKey.
type KeyResult struct {
	Key []byte
	OK  bool
}

// --------------------------------------------------------------------------
// Work Item
// --------------------------------------------------------------------------

// Item states. An item starts pending, then moves exactly once to either
// running (worker won) or cancelled (waiter won).
const (
	statePending uint32 = iota
	stateRunning
	stateCancelled
)

// Item is one queued operation together with its one-shot completion slot.
// The waiter and the worker race on the state via CAS, which decides whether
// a cancelled item is skipped (still pending) or runs to completion (already
// picked up).
type Item struct {
	Op    Op
	Key   []byte
	Value []byte
	Seq   uint64

	state atomic.Uint32
	done  chan Result
}

// NewItem creates a pending item. The done slot is buffered so the worker
// can always resolve it without blocking, even when the waiter is gone.
func NewItem(op Op, key, value []byte) *Item {
	return &Item{
		Op:    op,
		Key:   key,
		Value: value,
		done:  make(chan Result, 1),
	}
}

// TryStart transitions pending -> running. The worker calls this before
// touching the engine; false means a waiter cancelled the item first and it
// must be skipped.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (it *Item) TryStart() bool {
	return it.state.CompareAndSwap(statePending, stateRunning)
}

// TryCancel transitions pending -> cancelled. A waiter calls this when its
// context fires; false means the worker already picked the item up and it
// will run to completion.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (it *Item) TryCancel() bool {
	return it.state.CompareAndSwap(statePending, stateCancelled)
}

// Cancelled reports whether a waiter cancelled the item.
func (it *Item) Cancelled() bool {
	return it.state.Load() == stateCancelled
}

// Resolve completes the item. Only the worker calls this, exactly once per
// item; the buffered slot absorbs the result when no waiter is left.
func (it *Item) Resolve(payload interface{}, err error) {
	it.done <- Result{Payload: payload, Err: err}
}

// Done returns the one-shot completion channel.
func (it *Item) Done() <-chan Result {
	return it.done
}
