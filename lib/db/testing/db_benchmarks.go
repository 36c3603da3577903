package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/bkv-project/bKV/lib/db"
)

// RunStoreBenchmarks runs all benchmarks for a db.Store implementation.
//
// The benchmarks are strictly sequential. Engines guarantee nothing about
// concurrent callers, that is what the bridge layer is for, so measuring
// parallel access here would measure undefined behavior.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory(b))
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Has", func(b *testing.B) {
			benchmarkHas(b, factory(b))
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, factory(b))
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory(b))
		})

		b.Run("Keys", func(b *testing.B) {
			benchmarkKeys(b, factory(b))
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Set(key, value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Set(key, value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%numKeys))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Set(key, value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

// Benchmark for Set operation with large values
func benchmarkSetLargeValue(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)

	largeValue := make([]byte, 1*1024*1024) // 1MB

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		if err := store.Set(key, largeValue); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)
	requireFeature(b, store, db.FeatureGet)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Set(key, value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%numKeys))
		if _, err := store.Get(key); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}

// Benchmark for Has operation
func benchmarkHas(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)
	requireFeature(b, store, db.FeatureHas)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Set(key, value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%numKeys))
		if _, err := store.Has(key); err != nil {
			b.Fatalf("Has failed: %v", err)
		}
	}
}

// Benchmark for Has operation with key miss
func benchmarkHasNot(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureHas)

	key := []byte("test-key")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Has(key); err != nil {
			b.Fatalf("Has failed: %v", err)
		}
	}
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)
	requireFeature(b, store, db.FeatureDelete)

	// Prepare data, one key per iteration
	keys := make([][]byte, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = []byte(fmt.Sprintf("test-key-%d", i))
		if err := store.Set(keys[i], []byte("test-value")); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Delete(keys[i]); err != nil {
			b.Fatalf("Delete failed: %v", err)
		}
	}
}

// Benchmark for Keys snapshot over a populated store
func benchmarkKeys(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)
	requireFeature(b, store, db.FeatureKeys)

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		if err := store.Set(key, []byte("test-value")); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Keys(); err != nil {
			b.Fatalf("Keys failed: %v", err)
		}
	}
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, store db.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	requireFeature(b, store, db.FeatureSet)
	requireFeature(b, store, db.FeatureGet)
	requireFeature(b, store, db.FeatureDelete)
	requireFeature(b, store, db.FeatureHas)

	// Prepare initial data
	numKeys := 10000
	keys := make([][]byte, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Set(keys[i], value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	rnd := rand.New(rand.NewSource(42))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[i%numKeys]

		// For every 10th operation, use a completely new key
		if i%10 == 0 {
			key = []byte(fmt.Sprintf("new-key-%d", i))
		}

		switch rnd.Intn(10) {
		case 0, 1, 2, 3, 4, 5: // 60% Get
			_, _ = store.Get(key)
		case 6, 7: // 20% Set
			value := []byte(fmt.Sprintf("mixed-value-%d", i))
			_ = store.Set(key, value)
		case 8: // 10% Has
			_, _ = store.Has(key)
		case 9: // 10% Delete
			_ = store.Delete(key)
		}
	}
}
