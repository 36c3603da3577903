package bstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/db/engines/badger"
	"github.com/bkv-project/bKV/lib/db/engines/bolt"
	"github.com/bkv-project/bKV/lib/db/engines/flat"
	"github.com/bkv-project/bKV/lib/logging"
	"github.com/bkv-project/bKV/lib/store"
	"github.com/bkv-project/bKV/lib/store/bstore/internal"
)

var log = logging.For("bstore")

// registry tracks every open store by absolute path. A path can only be
// open once per process; Open fails with CodeOpen while another handle for
// the same path is still alive.
var registry = xsync.NewMapOf[string, *storeImpl]()

// store lifecycle states
const (
	stateRunning uint32 = iota
	stateClosing
	stateStopped
)

// storeImpl bridges concurrent callers onto a single-caller engine handle.
// All operations are funneled through one FIFO queue and executed by one
// worker goroutine, see worker.go.
//
// Thread-safety: This implementation is thread-safe.
type storeImpl struct {
	id      uuid.UUID
	path    string
	adapter db.Store
	queue   *internal.Queue

	// seq numbers items in enqueue-attempt order, for logs and tests
	seq   atomic.Uint64
	state atomic.Uint32

	// closeErr is written by the worker before stopped closes and may only
	// be read after <-stopped
	closeErr error
	stopped  chan struct{}

	metrics *storeMetrics
}

// MetricsWriter is implemented by stores that expose operational metrics.
type MetricsWriter interface {
	// WritePrometheus dumps the store's metrics in Prometheus text format.
	WritePrometheus(w io.Writer)
}

// ---------------------------------------------------------------------------
// lifecycle
// ---------------------------------------------------------------------------

// New wraps an already-open engine handle in a bridged store and starts its
// worker goroutine. On success the store owns the adapter and the caller
// must not touch it again; on error the adapter is untouched and stays the
// caller's responsibility.
//
// path is the registry key under which the store is registered. Use Open
// unless you need to inject a custom db.Store implementation.
func New(adapter db.Store, path string, opts *Options) (store.IStore, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, db.WrapError(db.CodeOpen, fmt.Sprintf("cannot resolve path %q", path), err)
	}

	s := &storeImpl{
		id:      uuid.New(),
		path:    abs,
		adapter: adapter,
		queue:   internal.NewQueue(opts.QueueSize),
		stopped: make(chan struct{}),
	}
	s.metrics = newStoreMetrics(s.id.String(), func() float64 {
		return float64(s.queue.Len())
	})

	if _, loaded := registry.LoadOrStore(abs, s); loaded {
		s.queue.Close(nil)
		return nil, db.NewError(db.CodeOpen, fmt.Sprintf("store %q is already open", abs))
	}

	go s.runWorker()

	log.Debug("store opened", "store", s.id.String(), "path", abs, "queueSize", opts.QueueSize)
	return s, nil
}

// Open opens or creates the store at path according to mode and wraps it in
// a bridged store. The engine is taken from opts.Engine; when unset an
// existing store is auto-detected and new stores default to the bolt engine.
func Open(path string, mode db.Mode, opts *Options) (store.IStore, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	adapter, err := openAdapter(path, mode, opts)
	if err != nil {
		return nil, err
	}

	s, err := New(adapter, path, opts)
	if err != nil {
		_ = adapter.Close()
		return nil, err
	}
	return s, nil
}

// With opens the store at path, runs fn with it and closes it again, even
// when fn fails. The close error is returned when fn itself succeeded.
func With(path string, mode db.Mode, opts *Options, fn func(s store.IStore) error) (err error) {
	s, err := Open(path, mode, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(context.Background()); err == nil {
			err = closeErr
		}
	}()
	return fn(s)
}

// openAdapter resolves the engine implementation and opens the raw handle.
func openAdapter(path string, mode db.Mode, opts *Options) (db.Store, error) {
	impl := opts.Engine

	if impl == db.ImplUnknown {
		detected, err := db.Detect(path)
		switch {
		case err == nil && detected != db.ImplUnknown:
			impl = detected
		case mode == db.ModeReadOnly || mode == db.ModeReadWrite:
			if err != nil {
				return nil, err
			}
			return nil, db.NewError(db.CodeOpen, fmt.Sprintf("unrecognized store format at %q", path))
		default:
			// creating something new, pick the default engine
			impl = db.ImplBolt
		}
	}

	switch impl {
	case db.ImplBolt:
		return bolt.New(path, mode, opts.Bolt)
	case db.ImplBadger:
		return badger.New(path, mode, opts.Badger)
	case db.ImplFlat:
		return flat.New(path, mode, opts.Flat)
	default:
		return nil, db.NewError(db.CodeOpen, fmt.Sprintf("unknown engine %q", impl))
	}
}

// Close shuts the store down. The first call enqueues the close item as the
// final operation; the engine executes everything already queued, then
// closes. Operations still queued behind the close item fail with
// CodeClosed. Every call blocks until the worker has fully stopped (or ctx
// fires); the first call reports the engine's close error, later calls
// return nil.
//
// Thread-safety: This method is thread-safe.
func (s *storeImpl) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	first := s.state.CompareAndSwap(stateRunning, stateClosing)
	if first {
		item := internal.NewItem(internal.OpClose, nil, nil)
		item.Seq = s.seq.Add(1)
		// the close item bypasses the queue bound, closing must not fail on
		// a full queue
		s.queue.Close(item)
		log.Debug("store closing", "store", s.id.String(), "path", s.path, "pending", s.queue.Len())
	}

	select {
	case <-s.stopped:
		if first {
			return s.closeErr
		}
		return nil
	case <-ctx.Done():
		return db.WrapError(db.CodeCancelled, "close wait cancelled", ctx.Err())
	}
}

// WritePrometheus dumps the store's metrics in Prometheus text format.
func (s *storeImpl) WritePrometheus(w io.Writer) {
	s.metrics.writePrometheus(w)
}

// ---------------------------------------------------------------------------
// facade
// ---------------------------------------------------------------------------

// enqueue pushes one operation into the queue and waits for its result or
// for ctx. The worker hands results over as interface{} payloads; this
// helper casts them back to the operation's result type.
//
// When ctx fires first the item is withdrawn: an item still waiting in the
// queue is skipped by the worker, an item already executing runs to
// completion against the engine and its result is discarded into the item's
// buffered completion slot. Either way the caller gets CodeCancelled.
func enqueue[R any](s *storeImpl, ctx context.Context, op internal.Op, key, value []byte) (R, error) {
	var zero R

	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return zero, db.WrapError(db.CodeCancelled, fmt.Sprintf("%s operation cancelled", op), err)
	}

	// fail fast once closing has started
	if s.state.Load() != stateRunning {
		return zero, db.ErrStoreClosed
	}

	item := internal.NewItem(op, key, value)
	item.Seq = s.seq.Add(1)

	if err := s.queue.Push(item); err != nil {
		if errors.Is(err, internal.ErrQueueFull) {
			s.metrics.rejected.Inc()
			return zero, db.ErrStoreBusy
		}
		return zero, db.ErrStoreClosed
	}
	s.metrics.enqueued.Inc()

	select {
	case res := <-item.Done():
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Payload == nil {
			return zero, nil
		}
		casted, ok := res.Payload.(R)
		if !ok {
			return zero, db.NewError(db.CodeInternal, fmt.Sprintf("unexpected result type: received %T", res.Payload))
		}
		return casted, nil

	case <-ctx.Done():
		if item.TryCancel() {
			s.metrics.cancelled.Inc()
		}
		return zero, db.WrapError(db.CodeCancelled, fmt.Sprintf("%s operation cancelled", op), ctx.Err())
	}
}

// ---------------------------------------------------------------------------
// store.IStore implementation
// ---------------------------------------------------------------------------

func (s *storeImpl) Set(ctx context.Context, key []byte, value []byte) error {
	_, err := enqueue[any](s, ctx, internal.OpSet, key, value)
	return err
}

func (s *storeImpl) SetDefault(ctx context.Context, key []byte, value []byte) ([]byte, bool, error) {
	res, err := enqueue[internal.ValueResult](s, ctx, internal.OpSetDefault, key, value)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Loaded, nil
}

func (s *storeImpl) Get(ctx context.Context, key []byte) ([]byte, error) {
	return enqueue[[]byte](s, ctx, internal.OpGet, key, nil)
}

func (s *storeImpl) GetDefault(ctx context.Context, key []byte, fallback []byte) ([]byte, error) {
	value, err := s.Get(ctx, key)
	if db.IsNotFound(err) {
		return fallback, nil
	}
	return value, err
}

func (s *storeImpl) Delete(ctx context.Context, key []byte) error {
	_, err := enqueue[any](s, ctx, internal.OpDelete, key, nil)
	return err
}

func (s *storeImpl) Has(ctx context.Context, key []byte) (bool, error) {
	return enqueue[bool](s, ctx, internal.OpHas, key, nil)
}

func (s *storeImpl) Len(ctx context.Context) (int, error) {
	return enqueue[int](s, ctx, internal.OpLen, nil, nil)
}

func (s *storeImpl) Keys(ctx context.Context) (*store.KeyIterator, error) {
	keys, err := enqueue[[][]byte](s, ctx, internal.OpKeys, nil, nil)
	if err != nil {
		return nil, err
	}
	return store.NewKeyIterator(keys), nil
}

func (s *storeImpl) FirstKey(ctx context.Context) ([]byte, bool, error) {
	res, err := enqueue[internal.KeyResult](s, ctx, internal.OpFirstKey, nil, nil)
	if err != nil {
		return nil, false, err
	}
	return res.Key, res.OK, nil
}

func (s *storeImpl) NextKey(ctx context.Context, after []byte) ([]byte, bool, error) {
	res, err := enqueue[internal.KeyResult](s, ctx, internal.OpNextKey, after, nil)
	if err != nil {
		return nil, false, err
	}
	return res.Key, res.OK, nil
}

func (s *storeImpl) Sync(ctx context.Context) error {
	_, err := enqueue[any](s, ctx, internal.OpSync, nil, nil)
	return err
}

func (s *storeImpl) Reorganize(ctx context.Context) error {
	_, err := enqueue[any](s, ctx, internal.OpReorganize, nil, nil)
	return err
}

func (s *storeImpl) Info(ctx context.Context) (db.Info, error) {
	return enqueue[db.Info](s, ctx, internal.OpInfo, nil, nil)
}
