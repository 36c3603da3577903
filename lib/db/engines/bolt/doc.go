// Package bolt implements the db.Store interface on top of a bbolt file.
//
// All entries live in a single bucket inside one memory-mapped file. Every
// operation runs in its own bbolt transaction, so a handle observes a
// consistent snapshot per call and never holds locks between calls. Keys are
// maintained in lexicographic byte order, which makes the engine the natural
// choice when FirstKey/NextKey traversal matters.
//
// Supported features beyond the core set:
//
//   - FeatureFirstNext: cursor-backed ordered key stepping
//   - FeatureSync: manual flush, relevant when opened with NoSync
//
// Reorganize is not supported; bbolt reclaims pages through its freelist and
// offers no online compaction.
//
// Values returned by Get are copied out of the mmap region before the
// transaction ends and are safe to retain.
//
// Thread-safety: bbolt serializes writers internally, but this engine is
// accessed through a single worker goroutine anyway and makes no own
// concurrency guarantees.
package bolt
