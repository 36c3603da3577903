package flat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/db/engines/flat/internal"
	"github.com/bkv-project/bKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for store behavior and file structure
const (
	flatVersion = 1 // File format version

	supportedFeatures = db.FeatureCore | db.FeatureSync
)

// --------------------------------------------------------------------------
// Core flat store structure
// --------------------------------------------------------------------------

// flatImpl is an in-memory store with sharded data and a simple binary file
// persistence. The whole data set lives in memory; Sync and Close write it
// back to the backing file. It is the plain-file analog of the classic
// "dumb" dbm variant and doubles as the throwaway engine for tests.
type flatImpl struct {
	path      string
	mode      db.Mode
	numShards int               // Number of shards
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	dirty     atomic.Bool       // Unsaved changes since the last persist
	closed    atomic.Bool
}

// Options configures the flat engine during initialization
type Options struct {
	NumShards int // Number of shards (0 = one per CPU)
}

// DefaultOptions returns the default flat engine options
func DefaultOptions() *Options {
	return &Options{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// New opens or creates a flat store at path according to mode.
//
// Thread-safety: the returned Store must only be used by one goroutine at a
// time, like every db.Store.
func New(path string, mode db.Mode, opts *Options) (db.Store, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	s := &flatImpl{
		path:      path,
		mode:      mode,
		numShards: numShards,
		seed:      util.GenerateSeed(),
		shards:    newShards(numShards),
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil

	switch mode {
	case db.ModeReadOnly, db.ModeReadWrite:
		if !exists {
			return nil, db.WrapError(db.CodeOpen, fmt.Sprintf("flat store %q does not exist", path), statErr)
		}
		if err := s.load(); err != nil {
			return nil, err
		}
	case db.ModeCreate:
		if exists {
			if err := s.load(); err != nil {
				return nil, err
			}
		} else if err := s.persist(); err != nil {
			// materialize the empty store so the path is claimed
			return nil, db.WrapError(db.CodeOpen, "cannot create flat store", err)
		}
	case db.ModeTruncate:
		if err := s.persist(); err != nil {
			return nil, db.WrapError(db.CodeOpen, "cannot create flat store", err)
		}
	default:
		return nil, db.NewError(db.CodeOpen, fmt.Sprintf("invalid open mode %d", mode))
	}

	return s, nil
}

func newShards(n int) []*internal.Shard {
	shards := make([]*internal.Shard, n)
	for i := range shards {
		shards[i] = internal.NewShard()
	}
	return shards
}

// shardFor returns the shard responsible for key
func (s *flatImpl) shardFor(key []byte) *internal.Shard {
	return internal.GetShard(util.HashKey(key, s.seed), s.shards)
}

// --------------------------------------------------------------------------
// Store Interface - Write Operations
// --------------------------------------------------------------------------

func (s *flatImpl) Set(key, value []byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	s.shardFor(key).Data.Store(string(key), util.CopyBytes(value))
	s.dirty.Store(true)
	return nil
}

func (s *flatImpl) Delete(key []byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, loaded := s.shardFor(key).Data.LoadAndDelete(string(key)); !loaded {
		return db.ErrKeyNotFound
	}
	s.dirty.Store(true)
	return nil
}

// writable rejects mutations on read-only stores
func (s *flatImpl) writable() error {
	if !s.mode.Writable() {
		return db.NewError(db.CodeIO, "store is read-only")
	}
	return nil
}

// --------------------------------------------------------------------------
// Store Interface - Query Operations
// --------------------------------------------------------------------------

func (s *flatImpl) Get(key []byte) ([]byte, error) {
	value, ok := s.shardFor(key).Data.Load(string(key))
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return util.CopyBytes(value), nil
}

func (s *flatImpl) Has(key []byte) (bool, error) {
	_, ok := s.shardFor(key).Data.Load(string(key))
	return ok, nil
}

func (s *flatImpl) Len() (int, error) {
	n := 0
	for _, shard := range s.shards {
		n += shard.Data.Size()
	}
	return n, nil
}

func (s *flatImpl) Keys() ([][]byte, error) {
	keys := make([][]byte, 0)
	for _, shard := range s.shards {
		shard.Data.Range(func(key string, _ []byte) bool {
			keys = append(keys, []byte(key))
			return true
		})
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// Store Interface - Unsupported Cursor Operations
// --------------------------------------------------------------------------

// FirstKey is not supported: shard iteration order is not stable enough for
// stateless cursor stepping.
func (s *flatImpl) FirstKey() ([]byte, bool, error) {
	return nil, false, db.ErrUnsupported
}

func (s *flatImpl) NextKey(after []byte) ([]byte, bool, error) {
	return nil, false, db.ErrUnsupported
}

// --------------------------------------------------------------------------
// Store Interface - Maintenance Operations
// --------------------------------------------------------------------------

// Sync writes the in-memory state back to the backing file if it changed
// since the last persist.
func (s *flatImpl) Sync() error {
	if !s.mode.Writable() {
		return nil
	}
	if !s.dirty.Load() {
		return nil
	}
	if err := s.persist(); err != nil {
		return db.WrapError(db.CodeIO, "cannot persist flat store", err)
	}
	return nil
}

func (s *flatImpl) Reorganize() error {
	return db.ErrUnsupported
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// persist writes all entries to a temp file and atomically renames it over
// the backing file.
func (s *flatImpl) persist() error {
	tmp, err := os.CreateTemp(dirOf(s.path), ".flat-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := s.save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.dirty.Store(false)
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[:i]
		}
	}
	return "."
}

// save streams the file header and all records to w
func (s *flatImpl) save(w io.Writer) error {
	// Use a buffered writer for better performance
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	// Write file header
	if _, err := bw.WriteString(db.FlatMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(flatVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, s.seed); err != nil {
		return err
	}

	// Collect a snapshot of all entries
	type record struct {
		key   string
		value []byte
	}
	var records []record
	for _, shard := range s.shards {
		shard.Data.Range(func(key string, value []byte) bool {
			records = append(records, record{key, value})
			return true
		})
	}

	// Write record count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(records))); err != nil {
		return err
	}

	// Write records
	for _, rec := range records {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(rec.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(rec.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(rec.value))); err != nil {
			return err
		}
		if _, err := bw.Write(rec.value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// load restores the store from its backing file
func (s *flatImpl) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return db.WrapError(db.CodeOpen, "cannot open flat store", err)
	}
	defer f.Close()

	// Use a buffered reader for better performance
	br := bufio.NewReaderSize(f, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magic := make([]byte, len(db.FlatMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return db.WrapError(db.CodeOpen, "cannot read flat store header", err)
	}
	if string(magic) != db.FlatMagic {
		return db.NewError(db.CodeOpen, "invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return db.WrapError(db.CodeOpen, "cannot read flat store header", err)
	}
	if int(version) != flatVersion {
		return db.NewError(db.CodeOpen, fmt.Sprintf("unsupported version: %d (expected %d)", version, flatVersion))
	}

	// Read seed
	var seed uint64
	if err := binary.Read(br, binary.LittleEndian, &seed); err != nil {
		return db.WrapError(db.CodeOpen, "cannot read flat store header", err)
	}

	// Recreate empty shards with the loaded seed
	s.shards = newShards(s.numShards)
	s.seed = seed

	// Read record count
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return db.WrapError(db.CodeOpen, "cannot read flat store", err)
	}

	// Read records
	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return db.WrapError(db.CodeOpen, "cannot read flat store", err)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return db.WrapError(db.CodeOpen, "cannot read flat store", err)
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return db.WrapError(db.CodeOpen, "cannot read flat store", err)
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return db.WrapError(db.CodeOpen, "cannot read flat store", err)
		}

		s.shardFor(key).Data.Store(string(key), value)
	}

	s.dirty.Store(false)
	return nil
}

// --------------------------------------------------------------------------
// Store Interface - Features and Metadata
// --------------------------------------------------------------------------

// Info returns statistics about the store. SizeBytes reports the backing
// file size; when the file cannot be inspected it falls back to an estimate
// from a sampled value size histogram.
func (s *flatImpl) Info() db.Info {
	histogram := util.NewSizeHistogram()
	samplesPerShard := 100

	entries := 0
	shardSizes := make([]float64, len(s.shards))
	for i, shard := range s.shards {
		count := 0
		shard.Data.Range(func(_ string, value []byte) bool {
			histogram.AddSample(len(value))
			count++
			return count < samplesPerShard
		})
		size := shard.Data.Size()
		shardSizes[i] = float64(size)
		entries += size
	}

	// weighted estimate (60% median, 40% average) per entry
	perEntry := (histogram.MedianEstimate()*60 + histogram.AverageSize()*40) / 100
	sizeBytes := int64(perEntry) * int64(entries)
	if fi, err := os.Stat(s.path); err == nil {
		sizeBytes = fi.Size()
	}

	meta := &struct {
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		Dirty             bool                   `json:"dirty"`
	}{
		ShardCount:        len(s.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		Dirty:             s.dirty.Load(),
	}

	return db.Info{
		Path:      s.path,
		Impl:      db.ImplFlat,
		Entries:   entries,
		SizeBytes: sizeBytes,
		SupportedFeatures: []db.Feature{
			db.FeatureGet, db.FeatureSet, db.FeatureDelete,
			db.FeatureHas, db.FeatureLen, db.FeatureKeys,
			db.FeatureSync,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this engine supports a specific Store feature
func (s *flatImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

// Close persists outstanding changes and releases the store
func (s *flatImpl) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.Sync()
}
