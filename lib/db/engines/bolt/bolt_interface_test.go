package bolt

import (
	"path/filepath"
	"testing"

	"github.com/bkv-project/bKV/lib/db"
	dbtesting "github.com/bkv-project/bKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunStoreTests(t, "BoltStore", func(tb testing.TB) db.Store {
		store, err := New(filepath.Join(tb.TempDir(), "test.db"), db.ModeCreate, nil)
		if err != nil {
			tb.Fatalf("cannot open store: %v", err)
		}
		return store
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunStoreBenchmarks(b, "BoltStore", func(tb testing.TB) db.Store {
		store, err := New(filepath.Join(tb.TempDir(), "bench.db"), db.ModeCreate, nil)
		if err != nil {
			tb.Fatalf("cannot open store: %v", err)
		}
		return store
	})
}
