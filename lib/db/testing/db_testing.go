package testing

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/bkv-project/bKV/lib/db"
)

// StoreFactory creates a fresh, empty store instance for one test. Factories
// typically open the engine under tb.TempDir() so every subtest starts clean.
type StoreFactory func(tb testing.TB) db.Store

// RunStoreTests runs a comprehensive test suite for a db.Store implementation.
// Tests for optional features skip themselves when the engine does not
// support the feature.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(t))
		})

		t.Run("Len&Keys", func(t *testing.T) {
			testLenKeys(t, factory(t))
		})

		t.Run("FirstNext", func(t *testing.T) {
			testFirstNext(t, factory(t))
		})

		t.Run("Sync", func(t *testing.T) {
			testSync(t, factory(t))
		})

		t.Run("Reorganize", func(t *testing.T) {
			testReorganize(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the store supports the specified feature.
// Skip the test if it is not supported.
func requireFeature(tb testing.TB, store db.Store, feature db.Feature) {
	if !store.SupportsFeature(feature) {
		tb.Skip()
	}
}

func mustSet(tb testing.TB, store db.Store, key, value []byte) {
	tb.Helper()
	if err := store.Set(key, value); err != nil {
		tb.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(tb testing.TB, store db.Store, key []byte) []byte {
	tb.Helper()
	value, err := store.Get(key)
	if err != nil {
		tb.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureGet)

	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, store, testKey, testValue1)

	result := mustGet(t, store, testKey)
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, store, testKey, testValue2)

	result = mustGet(t, store, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, err := store.Get([]byte("nonexistent-key"))
	if !db.IsNotFound(err) {
		t.Errorf("Expected not-found for nonexistent key, got %v", err)
	}

	retrievedValue := mustGet(t, store, testKey)
	retrievedValue[0] = 'X'

	originalValue := mustGet(t, store, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testDelete(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureGet)
	requireFeature(t, store, db.FeatureDelete)

	testKey := []byte("delete-test-key")
	testValue := []byte("delete-test-value")

	mustSet(t, store, testKey, testValue)

	if err := store.Delete(testKey); err != nil {
		t.Errorf("Unexpected error deleting existing key: %v", err)
	}

	_, err := store.Get(testKey)
	if !db.IsNotFound(err) {
		t.Errorf("Expected not-found after Delete, got %v", err)
	}

	err = store.Delete([]byte("nonexistent-key"))
	if !db.IsNotFound(err) {
		t.Errorf("Expected not-found when deleting nonexistent key, got %v", err)
	}

	// deleting twice must fail the second time
	mustSet(t, store, testKey, testValue)
	if err := store.Delete(testKey); err != nil {
		t.Errorf("Unexpected error deleting existing key: %v", err)
	}
	if err := store.Delete(testKey); !db.IsNotFound(err) {
		t.Errorf("Expected not-found on second delete, got %v", err)
	}
}

func testHas(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureDelete)
	requireFeature(t, store, db.FeatureHas)

	testKey := []byte("has-test-key")
	testValue := []byte("has-test-value")

	ok, err := store.Has(testKey)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	mustSet(t, store, testKey, testValue)

	ok, err = store.Has(testKey)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected Has to return true after Set")
	}

	if err := store.Delete(testKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	ok, err = store.Has(testKey)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Errorf("Expected Has to return false after Delete")
	}
}

func testLenKeys(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureLen)
	requireFeature(t, store, db.FeatureKeys)

	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty store, got %d entries", n)
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no keys in empty store, got %d", len(keys))
	}

	numKeys := 100
	expected := make(map[string]bool, numKeys)
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("len-keys-test-%d", i)
		expected[key] = true
		mustSet(t, store, []byte(key), []byte(fmt.Sprintf("value-%d", i)))
	}

	n, err = store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != numKeys {
		t.Errorf("Expected %d entries, got %d", numKeys, n)
	}

	keys, err = store.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != numKeys {
		t.Errorf("Expected %d keys, got %d", numKeys, len(keys))
	}
	for _, key := range keys {
		if !expected[string(key)] {
			t.Errorf("Keys returned unexpected key %q", key)
		}
		delete(expected, string(key))
	}
	for key := range expected {
		t.Errorf("Keys is missing key %q", key)
	}
}

func testFirstNext(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureFirstNext)

	// empty store has no first key
	_, ok, err := store.FirstKey()
	if err != nil {
		t.Fatalf("FirstKey failed: %v", err)
	}
	if ok {
		t.Errorf("Expected no first key in empty store")
	}

	numKeys := 100
	expected := make([]string, 0, numKeys)
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("cursor-test-%03d", i)
		expected = append(expected, key)
		mustSet(t, store, []byte(key), []byte(fmt.Sprintf("value-%d", i)))
	}
	sort.Strings(expected)

	// walk the full key sequence
	visited := make([]string, 0, numKeys)
	key, ok, err := store.FirstKey()
	if err != nil {
		t.Fatalf("FirstKey failed: %v", err)
	}
	for ok {
		visited = append(visited, string(key))
		key, ok, err = store.NextKey(key)
		if err != nil {
			t.Fatalf("NextKey failed: %v", err)
		}
	}

	if len(visited) != numKeys {
		t.Fatalf("Expected to visit %d keys, visited %d", numKeys, len(visited))
	}

	sorted := append([]string(nil), visited...)
	sort.Strings(sorted)
	for i, key := range sorted {
		if key != expected[i] {
			t.Errorf("Visited key set mismatch at %d: expected %q, got %q", i, expected[i], key)
		}
	}

	// stepping past a deleted key continues with its successor
	requireFeature(t, store, db.FeatureDelete)
	if err := store.Delete([]byte(visited[1])); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	next, ok, err := store.NextKey([]byte(visited[1]))
	if err != nil {
		t.Fatalf("NextKey after delete failed: %v", err)
	}
	if !ok || string(next) == visited[1] {
		t.Errorf("Expected NextKey to step past deleted key, got %q (ok=%v)", next, ok)
	}
}

func testSync(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureSync)

	mustSet(t, store, []byte("sync-test-key"), []byte("sync-test-value"))

	if err := store.Sync(); err != nil {
		t.Errorf("Unexpected error during Sync: %v", err)
	}

	// syncing an unchanged store must also succeed
	if err := store.Sync(); err != nil {
		t.Errorf("Unexpected error during second Sync: %v", err)
	}
}

func testReorganize(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureGet)
	requireFeature(t, store, db.FeatureDelete)
	requireFeature(t, store, db.FeatureReorganize)

	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("reorganize-test-%d", i))
		mustSet(t, store, key, bytes.Repeat([]byte{byte(i)}, 512))
	}
	for i := 0; i < numKeys; i += 2 {
		if err := store.Delete([]byte(fmt.Sprintf("reorganize-test-%d", i))); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	}

	if err := store.Reorganize(); err != nil {
		t.Errorf("Unexpected error during Reorganize: %v", err)
	}

	// surviving entries must be intact afterwards
	for i := 1; i < numKeys; i += 2 {
		key := []byte(fmt.Sprintf("reorganize-test-%d", i))
		value := mustGet(t, store, key)
		if !bytes.Equal(value, bytes.Repeat([]byte{byte(i)}, 512)) {
			t.Errorf("Value mismatch for key %q after Reorganize", key)
		}
	}
}

func testEdgeCases(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureGet)

	emptyValueKey := []byte("empty-value-key")
	var emptyValue []byte

	mustSet(t, store, emptyValueKey, emptyValue)

	result := mustGet(t, store, emptyValueKey)
	if len(result) != 0 {
		t.Errorf("Empty value resulted in non-empty value: %v", result)
	}

	ok, err := store.Has(emptyValueKey)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Errorf("Key with empty value should exist")
	}

	largeKey := bytes.Repeat([]byte{'k'}, 1000)
	largeKeyValue := []byte("value for large key")

	mustSet(t, store, largeKey, largeKeyValue)

	result = mustGet(t, store, largeKey)
	if !bytes.Equal(result, largeKeyValue) {
		t.Errorf("Value mismatch for large key")
	}

	largeValueKey := []byte("large-value-key")
	largeValue := make([]byte, 4*1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	mustSet(t, store, largeValueKey, largeValue)

	result = mustGet(t, store, largeValueKey)
	if !bytes.Equal(result, largeValue) {
		headMismatch := !bytes.Equal(result[:10], largeValue[:10])
		tailMismatch := !bytes.Equal(result[len(result)-10:], largeValue[len(largeValue)-10:])
		t.Errorf("Large value mismatch: Head mismatch=%v, Tail mismatch=%v, Size mismatch=%v",
			headMismatch, tailMismatch, len(result) != len(largeValue))
	}

	// binary keys with zero bytes must round-trip
	binaryKey := []byte{0x00, 0xff, 0x00, 0x42}
	binaryValue := []byte{0xde, 0xad, 0xbe, 0xef}

	mustSet(t, store, binaryKey, binaryValue)

	result = mustGet(t, store, binaryKey)
	if !bytes.Equal(result, binaryValue) {
		t.Errorf("Binary key round-trip failed: expected %x, got %x", binaryValue, result)
	}
}

func testManyKeys(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)
	requireFeature(t, store, db.FeatureGet)
	requireFeature(t, store, db.FeatureDelete)

	prefix := "many-keys-test-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("%s%d", prefix, i))
		value := []byte(fmt.Sprintf("value-%d", i))
		mustSet(t, store, key, value)
	}

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("%s%d", prefix, i))
		expectedValue := []byte(fmt.Sprintf("value-%d", i))

		actualValue := mustGet(t, store, key)
		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value for key %s does not match: expected %s, got %s",
				key, expectedValue, actualValue)
		}
	}

	for i := 0; i < numKeys; i += 2 {
		key := []byte(fmt.Sprintf("%s%d", prefix, i))
		if err := store.Delete(key); err != nil {
			t.Fatalf("Delete failed for key %s: %v", key, err)
		}
	}

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("%s%d", prefix, i))
		_, err := store.Get(key)

		if i%2 == 0 {
			if !db.IsNotFound(err) {
				t.Errorf("Key %s should be deleted", key)
			}
		} else {
			if err != nil {
				t.Errorf("Key %s should still exist: %v", key, err)
			}
		}
	}

	if store.SupportsFeature(db.FeatureLen) {
		n, err := store.Len()
		if err != nil {
			t.Fatalf("Len failed: %v", err)
		}
		if n != numKeys/2 {
			t.Errorf("Expected %d entries after deletes, got %d", numKeys/2, n)
		}
	}
}

func testInfo(t *testing.T, store db.Store) {
	defer store.Close()

	requireFeature(t, store, db.FeatureSet)

	numKeys := 50
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("info-test-%d", i))
		mustSet(t, store, key, []byte(fmt.Sprintf("value-%d", i)))
	}

	info := store.Info()

	if info.Impl == db.ImplUnknown {
		t.Errorf("Info must report a concrete implementation")
	}
	if info.Entries != numKeys {
		t.Errorf("Expected %d entries in Info, got %d", numKeys, info.Entries)
	}
	if len(info.SupportedFeatures) == 0 {
		t.Errorf("Info must list supported features")
	}

	// the advertised feature list must agree with SupportsFeature
	for _, feature := range info.SupportedFeatures {
		if !store.SupportsFeature(feature) {
			t.Errorf("Info lists feature %v but SupportsFeature denies it", feature)
		}
	}
}
