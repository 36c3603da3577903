package flat

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bkv-project/bKV/lib/db"
)

func openTestStore(t *testing.T, path string, mode db.Mode) db.Store {
	t.Helper()
	store, err := New(path, mode, nil)
	if err != nil {
		t.Fatalf("cannot open store at %q in mode %v: %v", path, mode, err)
	}
	return store
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.flat")

	store := openTestStore(t, path, db.ModeCreate)
	if err := store.Set([]byte("persist-key"), []byte("persist-value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// reopening must see the flushed entry
	store = openTestStore(t, path, db.ModeReadWrite)
	defer store.Close()

	value, err := store.Get([]byte("persist-key"))
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if !bytes.Equal(value, []byte("persist-value")) {
		t.Errorf("Expected persist-value, got %s", value)
	}
}

func TestSyncPersistsWithoutClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.flat")

	store := openTestStore(t, path, db.ModeCreate)
	defer store.Close()

	if err := store.Set([]byte("sync-key"), []byte("sync-value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	// a second read-only handle on the same file must see the synced entry
	reader := openTestStore(t, path, db.ModeReadOnly)
	defer reader.Close()

	value, err := reader.Get([]byte("sync-key"))
	if err != nil {
		t.Fatalf("Get on reader failed: %v", err)
	}
	if !bytes.Equal(value, []byte("sync-value")) {
		t.Errorf("Expected sync-value, got %s", value)
	}
}

func TestOpenModes(t *testing.T) {
	dir := t.TempDir()

	t.Run("ReadOnlyMissing", func(t *testing.T) {
		_, err := New(filepath.Join(dir, "missing-r.flat"), db.ModeReadOnly, nil)
		if code, ok := db.CodeOf(err); !ok || code != db.CodeOpen {
			t.Errorf("Expected open error for missing read-only store, got %v", err)
		}
	})

	t.Run("ReadWriteMissing", func(t *testing.T) {
		_, err := New(filepath.Join(dir, "missing-w.flat"), db.ModeReadWrite, nil)
		if code, ok := db.CodeOf(err); !ok || code != db.CodeOpen {
			t.Errorf("Expected open error for missing read-write store, got %v", err)
		}
	})

	t.Run("CreateKeepsExisting", func(t *testing.T) {
		path := filepath.Join(dir, "create.flat")

		store := openTestStore(t, path, db.ModeCreate)
		if err := store.Set([]byte("kept"), []byte("yes")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		store = openTestStore(t, path, db.ModeCreate)
		defer store.Close()
		if _, err := store.Get([]byte("kept")); err != nil {
			t.Errorf("Create mode must keep existing entries, got %v", err)
		}
	})

	t.Run("TruncateDiscardsExisting", func(t *testing.T) {
		path := filepath.Join(dir, "truncate.flat")

		store := openTestStore(t, path, db.ModeCreate)
		if err := store.Set([]byte("gone"), []byte("soon")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		store = openTestStore(t, path, db.ModeTruncate)
		defer store.Close()

		if _, err := store.Get([]byte("gone")); !db.IsNotFound(err) {
			t.Errorf("Truncate mode must discard existing entries, got %v", err)
		}
		if n, err := store.Len(); err != nil || n != 0 {
			t.Errorf("Expected empty store after truncate, got n=%d err=%v", n, err)
		}
	})
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readonly.flat")

	store := openTestStore(t, path, db.ModeCreate)
	if err := store.Set([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store = openTestStore(t, path, db.ModeReadOnly)
	defer store.Close()

	if err := store.Set([]byte("key"), []byte("new")); err == nil {
		t.Errorf("Expected Set to fail on read-only store")
	}
	if err := store.Delete([]byte("key")); err == nil {
		t.Errorf("Expected Delete to fail on read-only store")
	}

	// reads still work
	value, err := store.Get([]byte("key"))
	if err != nil {
		t.Fatalf("Get on read-only store failed: %v", err)
	}
	if !bytes.Equal(value, []byte("value")) {
		t.Errorf("Expected value, got %s", value)
	}
}

func TestCorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.flat")

	if err := os.WriteFile(path, []byte("this is not a flat store"), 0o600); err != nil {
		t.Fatalf("cannot write corrupt file: %v", err)
	}

	_, err := New(path, db.ModeReadWrite, nil)
	if code, ok := db.CodeOf(err); !ok || code != db.CodeOpen {
		t.Errorf("Expected open error for corrupt file, got %v", err)
	}
}

func TestUnsupportedCursorOps(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cursor.flat"), db.ModeCreate)
	defer store.Close()

	if _, _, err := store.FirstKey(); !errors.Is(err, db.ErrUnsupported) {
		t.Errorf("Expected unsupported error from FirstKey, got %v", err)
	}
	if _, _, err := store.NextKey([]byte("x")); !errors.Is(err, db.ErrUnsupported) {
		t.Errorf("Expected unsupported error from NextKey, got %v", err)
	}
	if err := store.Reorganize(); !errors.Is(err, db.ErrUnsupported) {
		t.Errorf("Expected unsupported error from Reorganize, got %v", err)
	}
}
