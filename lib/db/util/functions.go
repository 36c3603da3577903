package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for internal hash distribution
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// last-resort fallback on the current time
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// CopyBytes returns a copy of b. Engines use it to decouple stored data from
// caller-owned slices and vice versa. A nil input stays nil.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// HashKey hashes a key with a per-store seed so that shard placement differs
// between store instances. xxhash is fast and has good distribution.
func HashKey(key []byte, seed uint64) uint64 {
	return xxhash.Sum64(key) ^ seed
}
