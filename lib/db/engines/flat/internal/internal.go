package internal

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Shard Type (partition of the store)
// --------------------------------------------------------------------------

// Shard represents a partition of the store.
// Each shard has its own independent concurrent map, so writes to different
// shards never contend.
type Shard struct {
	Data *xsync.MapOf[string, []byte] // Map of active key-value entries
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data: xsync.NewMapOf[string, []byte](),
	}
}

// GetShard returns the appropriate shard for a given key hash
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](hash uint64, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shifted := hash >> 7
	return shards[shifted%uint64(len(shards))]
}
