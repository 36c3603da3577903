// Package flat implements an in-memory key-value store with a simple binary
// file persistence. It provides a complete implementation of the db.Store
// interface with a focus on fast access and a trivially inspectable on-disk
// format.
//
// The package focuses on:
//   - Sharded in-memory storage to keep key distribution even
//   - A compact length-prefixed binary file format written on Sync and Close
//   - Cheap statistics via sampled size histograms
//
// Key Components:
//
//   - flatImpl: The central store structure implementing db.Store. The whole
//     data set lives in memory; the backing file is only touched on open
//     (load), Sync and Close (persist). Persisting writes to a temp file and
//     renames it over the old one, so a crash mid-write never corrupts the
//     previous state.
//
//   - Shard: A partition of the store managing a subset of the key space.
//     Keys are placed by hashing them with a per-store seed (xxhash) and
//     right-shifting by 7 bits to use higher-quality bits for distribution.
//     Each shard holds its own xsync.MapOf, so concurrent access never
//     contends across shards.
//
// Persistence Format:
//  1. Magic number "BKVFLAT\x00" to identify the file format
//  2. Version number (currently 1)
//  3. Store seed value
//  4. Number of records
//  5. For each record: key length, key bytes, value length, value bytes
//
// Supported features: the core operations plus Sync. FirstKey/NextKey cursor
// stepping is not supported because shard iteration order is unstable, and
// Reorganize is meaningless for a store that rewrites its file wholesale.
//
// The flat engine is the natural choice for tests, tooling, and small
// throwaway stores; for large or durable data sets use the bolt or badger
// engines instead.
package flat
