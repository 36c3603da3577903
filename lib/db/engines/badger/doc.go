// Package badger implements the db.Store interface on top of a badger
// directory.
//
// Badger is an LSM-tree engine with a separate value log, so the store root
// is a directory rather than a single file. Keys iterate in lexicographic
// byte order, which backs FirstKey/NextKey the same way a cursor does.
//
// This is the only engine that supports the full feature set:
//
//   - FeatureFirstNext: ordered key stepping via iterator seeks
//   - FeatureSync: flush memtables and the value log
//   - FeatureReorganize: value log garbage collection, reclaims space left
//     behind by overwritten and deleted entries
//
// Thread-safety: badger handles concurrent transactions internally, but this
// engine is accessed through a single worker goroutine anyway and makes no
// own concurrency guarantees.
package badger
