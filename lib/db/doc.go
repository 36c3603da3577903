// Package db defines the synchronous storage contract underneath the bridge.
// It provides a standardized Store interface that allows consistent interaction
// with various embedded key-value engines while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for blocking key-value operations
//   - Feature discovery through capability flags
//   - A tagged error taxonomy carrying native engine errors as causes
//   - Open-mode semantics shared by all engines
//
// Key Components:
//
//   - Store Interface: The core interface that all engines must satisfy.
//     It provides the blocking primitives (Set, Get, Has, Delete, Len, Keys,
//     Close) plus feature-gated extras (FirstKey/NextKey cursor stepping,
//     Sync, Reorganize) and metadata retrieval (Info). Store values are NOT
//     safe for concurrent use; serial access is the caller's job. The
//     lib/store/bstore package provides exactly that: it funnels all calls
//     through one worker goroutine per open store.
//
//   - Feature Flags: The Feature type defines capability flags that engines
//     advertise through the SupportsFeature method. This allows clients to
//     discover supported operations at runtime instead of hitting
//     CodeUnsupported errors.
//
//   - Error Taxonomy: The Error type tags every failure with a Code (open,
//     not-found, I/O, closed, busy, cancelled, unsupported, internal) and
//     optionally wraps the engine's native error. Callers match on either
//     level with errors.Is and errors.As.
//
//   - Open Modes: The Mode type mirrors the classic dbm flag letters:
//     read-only ("r"), read-write ("w"), create-if-missing ("c") and
//     truncate ("n").
//
//   - Engine Detection: Detect inspects an on-disk path and reports which
//     engine wrote it, used for automatic engine selection when reopening
//     existing stores.
//
// Related Packages:
//
// The engines/bolt package provides the default file-backed engine on top of
// go.etcd.io/bbolt. The engines/badger package wraps dgraph-io/badger for
// LSM-backed directories. The engines/flat package is an in-memory sharded
// engine with a simple binary file persistence, mainly used for tests and
// throwaway stores.
//
// The testing package (github.com/bkv-project/bKV/lib/db/testing) provides
// standardized conformance tests and benchmarks for Store implementations:
//   - RunStoreTests: Runs a standardized test suite to validate engines
//   - RunStoreBenchmarks: Provides performance benchmarks for comparing engines
package db
