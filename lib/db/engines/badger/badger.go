package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/bkv-project/bKV/lib/db"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const supportedFeatures = db.FeatureCore | db.FeatureFirstNext | db.FeatureSync | db.FeatureReorganize

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options holds the badger tuning knobs exposed by this engine.
type Options struct {
	// SyncWrites makes every write wait for fsync before returning.
	SyncWrites bool
	// GCDiscardRatio is the minimum fraction of discardable data a value log
	// file must contain before Reorganize rewrites it. Must be in (0, 1).
	GCDiscardRatio float64
}

// DefaultOptions returns the default badger engine options.
func DefaultOptions() *Options {
	return &Options{
		GCDiscardRatio: 0.5,
	}
}

// --------------------------------------------------------------------------
// Core badger store structure
// --------------------------------------------------------------------------

// badgerImpl implements db.Store on top of a badger directory. Badger is an
// LSM-tree engine, so writes are cheap and Reorganize maps onto value log
// garbage collection.
type badgerImpl struct {
	path           string
	mode           db.Mode
	handle         *badger.DB
	gcDiscardRatio float64
}

// New opens or creates a badger store rooted at the directory path.
func New(path string, mode db.Mode, opts *Options) (db.Store, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch mode {
	case db.ModeReadOnly, db.ModeReadWrite:
		if _, err := os.Stat(filepath.Join(path, "MANIFEST")); err != nil {
			return nil, db.WrapError(db.CodeOpen, fmt.Sprintf("badger store %q does not exist", path), err)
		}
	case db.ModeTruncate:
		if err := os.RemoveAll(path); err != nil {
			return nil, db.WrapError(db.CodeOpen, "cannot truncate badger store", err)
		}
	case db.ModeCreate:
	default:
		return nil, db.NewError(db.CodeOpen, fmt.Sprintf("invalid open mode %d", mode))
	}

	bo := badger.DefaultOptions(path).
		WithLogger(nil).
		WithReadOnly(mode == db.ModeReadOnly).
		WithSyncWrites(opts.SyncWrites)

	handle, err := badger.Open(bo)
	if err != nil {
		return nil, db.WrapError(db.CodeOpen, "cannot open badger store", err)
	}

	return &badgerImpl{
		path:           path,
		mode:           mode,
		handle:         handle,
		gcDiscardRatio: opts.GCDiscardRatio,
	}, nil
}

// mapErr normalizes transaction errors into the shared taxonomy. Errors that
// already carry a code pass through untouched.
func mapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded *db.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return db.ErrKeyNotFound
	}
	if errors.Is(err, badger.ErrReadOnlyTxn) {
		return db.WrapError(db.CodeIO, "store is read-only", err)
	}
	return db.WrapError(db.CodeIO, msg, err)
}

// --------------------------------------------------------------------------
// Store Interface - Write Operations
// --------------------------------------------------------------------------

func (s *badgerImpl) Set(key, value []byte) error {
	err := s.handle.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return mapErr(err, "cannot set key")
}

func (s *badgerImpl) Delete(key []byte) error {
	err := s.handle.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(key); getErr != nil {
			return getErr
		}
		return txn.Delete(key)
	})
	return mapErr(err, "cannot delete key")
}

// --------------------------------------------------------------------------
// Store Interface - Query Operations
// --------------------------------------------------------------------------

func (s *badgerImpl) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.handle.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if getErr != nil {
			return getErr
		}
		value, getErr = item.ValueCopy(nil)
		return getErr
	})
	if err != nil {
		return nil, mapErr(err, "cannot get key")
	}
	return value, nil
}

func (s *badgerImpl) Has(key []byte) (bool, error) {
	var ok bool
	err := s.handle.View(func(txn *badger.Txn) error {
		_, getErr := txn.Get(key)
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return nil
		}
		ok = getErr == nil
		return getErr
	})
	if err != nil {
		return false, mapErr(err, "cannot check key")
	}
	return ok, nil
}

func (s *badgerImpl) Len() (int, error) {
	var n int
	err := s.handle.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, mapErr(err, "cannot count keys")
	}
	return n, nil
}

func (s *badgerImpl) Keys() ([][]byte, error) {
	keys := make([][]byte, 0)
	err := s.handle.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err, "cannot list keys")
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// Store Interface - Cursor Operations
// --------------------------------------------------------------------------

func (s *badgerImpl) FirstKey() ([]byte, bool, error) {
	var key []byte
	err := s.handle.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		if it.Valid() {
			key = it.Item().KeyCopy(nil)
		}
		return nil
	})
	if err != nil {
		return nil, false, mapErr(err, "cannot read first key")
	}
	return key, key != nil, nil
}

// NextKey steps the lexicographic order. Seek lands on the smallest key
// >= after, which transparently skips keys deleted since the previous step.
func (s *badgerImpl) NextKey(after []byte) ([]byte, bool, error) {
	var key []byte
	err := s.handle.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(after)
		if it.Valid() && string(it.Item().Key()) == string(after) {
			it.Next()
		}
		if it.Valid() {
			key = it.Item().KeyCopy(nil)
		}
		return nil
	})
	if err != nil {
		return nil, false, mapErr(err, "cannot read next key")
	}
	return key, key != nil, nil
}

// --------------------------------------------------------------------------
// Store Interface - Maintenance Operations
// --------------------------------------------------------------------------

func (s *badgerImpl) Sync() error {
	if err := s.handle.Sync(); err != nil {
		return db.WrapError(db.CodeIO, "cannot sync store", err)
	}
	return nil
}

// Reorganize runs value log garbage collection until badger reports that no
// file is worth rewriting. ErrNoRewrite is the regular end state, not a
// failure.
func (s *badgerImpl) Reorganize() error {
	if !s.mode.Writable() {
		return db.WrapError(db.CodeIO, "store is read-only", nil)
	}
	for {
		err := s.handle.RunValueLogGC(s.gcDiscardRatio)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		return db.WrapError(db.CodeIO, "cannot reorganize store", err)
	}
}

// --------------------------------------------------------------------------
// Store Interface - Features and Metadata
// --------------------------------------------------------------------------

func (s *badgerImpl) Info() db.Info {
	entries, _ := s.Len()
	lsmSize, vlogSize := s.handle.Size()

	meta := &struct {
		LSMSizeBytes      int64 `json:"lsm_size_bytes"`
		ValueLogSizeBytes int64 `json:"value_log_size_bytes"`
	}{
		LSMSizeBytes:      lsmSize,
		ValueLogSizeBytes: vlogSize,
	}

	return db.Info{
		Path:      s.path,
		Impl:      db.ImplBadger,
		Entries:   entries,
		SizeBytes: lsmSize + vlogSize,
		SupportedFeatures: []db.Feature{
			db.FeatureGet, db.FeatureSet, db.FeatureDelete,
			db.FeatureHas, db.FeatureLen, db.FeatureKeys,
			db.FeatureFirstNext, db.FeatureSync, db.FeatureReorganize,
		},
		Metadata: meta,
	}
}

func (s *badgerImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

func (s *badgerImpl) Close() error {
	if err := s.handle.Close(); err != nil {
		return db.WrapError(db.CodeIO, "cannot close store", err)
	}
	return nil
}
