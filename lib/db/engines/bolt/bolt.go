package bolt

import (
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// bucketName is the single bucket all entries live in.
	bucketName = "bkv"

	supportedFeatures = db.FeatureCore | db.FeatureFirstNext | db.FeatureSync
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options holds the bbolt tuning knobs exposed by this engine.
type Options struct {
	// Timeout is the amount of time to wait to obtain the file lock.
	// Zero waits indefinitely.
	Timeout time.Duration
	// NoSync skips fsync after every commit. Faster, but an OS crash can
	// lose recent writes; use Sync() to flush manually.
	NoSync bool
	// FreelistType selects the freelist backend, "array" (default) or "map".
	FreelistType string
	// InitialMmapSize is the initial mmap size of the database in bytes.
	// Read transactions won't block write transactions if it is large
	// enough to hold the database.
	InitialMmapSize int
	// Mlock locks the database file in memory when set (UNIX only).
	Mlock bool
}

// DefaultOptions returns the default bolt engine options.
func DefaultOptions() *Options {
	return &Options{
		Timeout: time.Second,
	}
}

// buildBoltOptions maps engine Options onto bolt.Options.
func buildBoltOptions(mode db.Mode, opts *Options) *bolt.Options {
	bo := &bolt.Options{
		Timeout:         opts.Timeout,
		NoSync:          opts.NoSync,
		InitialMmapSize: opts.InitialMmapSize,
		Mlock:           opts.Mlock,
		ReadOnly:        mode == db.ModeReadOnly,
	}
	if opts.FreelistType == "map" {
		bo.FreelistType = bolt.FreelistMapType
	} else {
		bo.FreelistType = bolt.FreelistArrayType
	}
	return bo
}

// --------------------------------------------------------------------------
// Core bolt store structure
// --------------------------------------------------------------------------

// boltImpl implements db.Store on top of a single-bucket bbolt file.
// Every operation runs in its own transaction; values read inside a
// transaction are copied before the transaction ends.
type boltImpl struct {
	path   string
	mode   db.Mode
	handle *bolt.DB
	bucket []byte
}

// New opens or creates a bolt store at path according to mode.
func New(path string, mode db.Mode, opts *Options) (db.Store, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch mode {
	case db.ModeReadOnly, db.ModeReadWrite:
		if _, err := os.Stat(path); err != nil {
			return nil, db.WrapError(db.CodeOpen, fmt.Sprintf("bolt store %q does not exist", path), err)
		}
	case db.ModeTruncate:
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, db.WrapError(db.CodeOpen, "cannot truncate bolt store", err)
		}
	case db.ModeCreate:
	default:
		return nil, db.NewError(db.CodeOpen, fmt.Sprintf("invalid open mode %d", mode))
	}

	handle, err := bolt.Open(path, 0o600, buildBoltOptions(mode, opts))
	if err != nil {
		return nil, db.WrapError(db.CodeOpen, "cannot open bolt store", err)
	}

	s := &boltImpl{
		path:   path,
		mode:   mode,
		handle: handle,
		bucket: []byte(bucketName),
	}

	// Ensure the bucket exists. Read-only handles cannot create it; their
	// query operations treat a missing bucket as an empty store instead.
	if mode.Writable() {
		err = handle.Update(func(tx *bolt.Tx) error {
			_, bucketErr := tx.CreateBucketIfNotExists(s.bucket)
			return bucketErr
		})
		if err != nil {
			_ = handle.Close()
			return nil, db.WrapError(db.CodeOpen, fmt.Sprintf("cannot create bucket %q", bucketName), err)
		}
	}

	return s, nil
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
	if errors.Is(err, berrors.ErrDatabaseReadOnly) {
		return db.WrapError(db.CodeIO, "store is read-only", err)
	}
	return db.WrapError(db.CodeIO, msg, err)
}

// --------------------------------------------------------------------------
// Store Interface - Write Operations
// --------------------------------------------------------------------------

func (s *boltImpl) Set(key, value []byte) error {
	err := s.handle.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q not found", bucketName)
		}
		return bucket.Put(key, value)
	})
	return mapErr(err, "cannot set key")
}

func (s *boltImpl) Delete(key []byte) error {
	err := s.handle.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil || bucket.Get(key) == nil {
			return db.ErrKeyNotFound
		}
		return bucket.Delete(key)
	})
	return mapErr(err, "cannot delete key")
}

// --------------------------------------------------------------------------
// Store Interface - Query Operations
// --------------------------------------------------------------------------

func (s *boltImpl) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return db.ErrKeyNotFound
		}
		v := bucket.Get(key)
		if v == nil {
			return db.ErrKeyNotFound
		}
		// copy before the transaction ends, bolt memory is mmap-backed
		value = util.CopyBytes(v)
		return nil
	})
	if err != nil {
		return nil, mapErr(err, "cannot get key")
	}
	return value, nil
}

func (s *boltImpl) Has(key []byte) (bool, error) {
	var ok bool
	err := s.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		ok = bucket != nil && bucket.Get(key) != nil
		return nil
	})
	if err != nil {
		return false, mapErr(err, "cannot check key")
	}
	return ok, nil
}

func (s *boltImpl) Len() (int, error) {
	var n int
	err := s.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket != nil {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return 0, mapErr(err, "cannot count keys")
	}
	return n, nil
}

func (s *boltImpl) Keys() ([][]byte, error) {
	keys := make([][]byte, 0)
	err := s.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, util.CopyBytes(k))
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

func (s *boltImpl) FirstKey() ([]byte, bool, error) {
	var key []byte
	err := s.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		k, _ := bucket.Cursor().First()
		key = util.CopyBytes(k)
		return nil
	})
	if err != nil {
		return nil, false, mapErr(err, "cannot read first key")
	}
	return key, key != nil, nil
}

// NextKey steps the lexicographic order. Seek lands on the smallest key
// >= after, which transparently skips keys deleted since the previous step.
func (s *boltImpl) NextKey(after []byte) ([]byte, bool, error) {
	var key []byte
	err := s.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		k, _ := c.Seek(after)
		if k != nil && string(k) == string(after) {
			k, _ = c.Next()
		}
		key = util.CopyBytes(k)
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

// Sync flushes the database file. Only useful when NoSync is set, but always
// safe to call.
func (s *boltImpl) Sync() error {
	if err := s.handle.Sync(); err != nil {
		return db.WrapError(db.CodeIO, "cannot sync store", err)
	}
	return nil
}

func (s *boltImpl) Reorganize() error {
	return db.ErrUnsupported
}

// --------------------------------------------------------------------------
// Store Interface - Features and Metadata
// --------------------------------------------------------------------------

func (s *boltImpl) Info() db.Info {
	entries, _ := s.Len()

	var sizeBytes int64
	if fi, err := os.Stat(s.path); err == nil {
		sizeBytes = fi.Size()
	}

	stats := s.handle.Stats()
	meta := &struct {
		FreePages    int `json:"free_pages"`
		PendingPages int `json:"pending_pages"`
		OpenTxN      int `json:"open_tx_n"`
	}{
		FreePages:    stats.FreePageN,
		PendingPages: stats.PendingPageN,
		OpenTxN:      stats.OpenTxN,
	}

	return db.Info{
		Path:      s.path,
		Impl:      db.ImplBolt,
		Entries:   entries,
		SizeBytes: sizeBytes,
		SupportedFeatures: []db.Feature{
			db.FeatureGet, db.FeatureSet, db.FeatureDelete,
			db.FeatureHas, db.FeatureLen, db.FeatureKeys,
			db.FeatureFirstNext, db.FeatureSync,
		},
		Metadata: meta,
	}
}

func (s *boltImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

func (s *boltImpl) Close() error {
	if err := s.handle.Close(); err != nil {
		return db.WrapError(db.CodeIO, "cannot close store", err)
	}
	return nil
}
