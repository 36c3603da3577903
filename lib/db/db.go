package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBolt    Implementation = "bolt"
	ImplBadger  Implementation = "badger"
	ImplFlat    Implementation = "flat"
	ImplUnknown Implementation = ""
)

// Feature represents store capabilities as bit flags
type Feature uint64

const (
	FeatureGet        Feature = 1 << iota // Support for Get operations
	FeatureSet                            // Support for Set operations
	FeatureDelete                         // Support for Delete operations
	FeatureHas                            // Support for Has operations
	FeatureLen                            // Support for Len operations
	FeatureKeys                           // Support for Keys snapshot operations
	FeatureFirstNext                      // Support for FirstKey/NextKey cursor stepping
	FeatureSync                           // Support for Sync operations
	FeatureReorganize                     // Support for Reorganize operations
)

func (f Feature) String() string {
	switch f {
	case FeatureGet:
		return "Get"
	case FeatureSet:
		return "Set"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureLen:
		return "Len"
	case FeatureKeys:
		return "Keys"
	case FeatureFirstNext:
		return "FirstNext"
	case FeatureSync:
		return "Sync"
	case FeatureReorganize:
		return "Reorganize"
	default:
		return "Unknown"
	}
}

// FeatureCore is the feature set every engine must support.
const FeatureCore = FeatureGet | FeatureSet | FeatureDelete | FeatureHas | FeatureLen | FeatureKeys

// Info describes an open store.
// It is not guaranteed that all fields are filled in or that the information is up-to-date!
type Info struct {
	Path              string         `json:"path"`
	Impl              Implementation `json:"impl"`
	Entries           int            `json:"entries"`
	SizeBytes         int64          `json:"size_bytes"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Store Interface
// --------------------------------------------------------------------------

// Store defines the synchronous interface all storage engines implement.
// It mirrors the primitives of an embedded key-value library: every call may
// block on I/O, and no two calls may run concurrently on the same Store.
// Serial access is the caller's responsibility (see lib/store/bstore, which
// funnels all calls through one worker goroutine).
//
// Implementations can vary in their feature support, which can be queried
// with SupportsFeature. Calling an unsupported operation returns a *Error
// with CodeUnsupported.
//
// Thread-safety: NOT safe for concurrent use. One goroutine at a time.
type Store interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry. If the key already exists, the old
	// value is overwritten. The value is copied before the call returns.
	Set(key, value []byte) (err error)

	// Delete removes an entry. Deleting an absent key fails with
	// CodeNotFound so callers can tell a no-op delete from a real one.
	Delete(key []byte) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key, failing with CodeNotFound
	// when the key is absent. The returned slice is a copy and safe to
	// modify.
	Get(key []byte) (value []byte, err error)

	// Has reports whether a key exists.
	Has(key []byte) (ok bool, err error)

	// Len returns the number of stored entries.
	Len() (n int, err error)

	// Keys returns a snapshot of all keys at the moment of the call.
	// Ordering is engine specific: file-backed engines return keys in
	// lexicographic order, the flat engine in no particular order.
	Keys() (keys [][]byte, err error)

	// --------------------------------------------------------------------------
	// Cursor Operations (FeatureFirstNext)
	// --------------------------------------------------------------------------

	// FirstKey returns the first key of the store's iteration order.
	// ok is false when the store is empty.
	FirstKey() (key []byte, ok bool, err error)

	// NextKey returns the key following after in iteration order.
	// ok is false when after was the last key. Unlike Keys, a walk built on
	// FirstKey/NextKey observes concurrent mutation.
	NextKey(after []byte) (key []byte, ok bool, err error)

	// --------------------------------------------------------------------------
	// Maintenance Operations (FeatureSync, FeatureReorganize)
	// --------------------------------------------------------------------------

	// Sync forces buffered writes to stable storage.
	Sync() (err error)

	// Reorganize compacts the store, reclaiming space left by deletions.
	Reorganize() (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|).
	SupportsFeature(feature Feature) (ok bool)

	// Info returns information about the store.
	Info() (info Info)

	// Close closes the store. The Store must not be used afterwards.
	Close() (err error)
}
