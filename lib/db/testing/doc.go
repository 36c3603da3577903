// Package testing provides standardised tests and benchmarks for store
// engines that satisfy the db.Store interface.
//
// The package contains:
//   - testing: A comprehensive test suite for validating conformance to the Store interface contract
//   - benchmark: Performance tests for measuring throughput of common store operations
//
// Tests covering optional features (cursors, sync, reorganize) skip
// themselves when the engine does not advertise the feature, so one suite
// covers every engine.
//
// Example usage:
//
//	// Creating a factory function for your engine
//	factory := func(tb testing.TB) db.Store {
//		store, err := myengine.New(filepath.Join(tb.TempDir(), "store"), db.ModeCreate, nil)
//		if err != nil {
//			tb.Fatalf("cannot open store: %v", err)
//		}
//		return store
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyEngine", factory)
//
//	// Running performance benchmarks
//	storetesting.RunStoreBenchmarks(b, "MyEngine", factory)
package testing
