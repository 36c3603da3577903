package bstore

import (
	"fmt"
	"time"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/db/util"
	"github.com/bkv-project/bKV/lib/store/bstore/internal"
)

// runWorker is the store's single worker goroutine. It is the only goroutine
// that ever touches the engine handle, which is what makes a blocking,
// non-reentrant engine safe to share between concurrent callers.
//
// The loop drains the queue in FIFO order until it encounters the close
// item. The close item shuts the engine down; anything still queued behind
// it is resolved with CodeClosed without touching the engine.
func (s *storeImpl) runWorker() {
	defer func() {
		s.state.Store(stateStopped)
		registry.Delete(s.path)
		close(s.stopped)
	}()

	log.Debug("worker started", "store", s.id.String(), "path", s.path)

	closed := false
	for item := range s.queue.Recv() {
		if closed {
			item.Resolve(nil, db.ErrStoreClosed)
			continue
		}
		if item.Op == internal.OpClose {
			closed = true
			s.closeErr = s.executeClose(item)
			continue
		}
		s.executeItem(item)
	}

	if !closed {
		// the queue shut down without a close item passing through; never
		// leave the engine handle open
		s.closeErr = s.adapter.Close()
	}

	log.Debug("worker stopped", "store", s.id.String(), "path", s.path)
}

// executeItem runs a single queued operation against the engine and resolves
// the item's completion slot with the outcome.
func (s *storeImpl) executeItem(item *internal.Item) {
	// callers withdraw waiting items by winning the state race; such items
	// are skipped without touching the engine
	if !item.TryStart() {
		item.Resolve(nil, db.ErrCancelled)
		return
	}

	start := time.Now()
	payload, err := s.dispatch(item)
	s.metrics.latency.UpdateDuration(start)

	if err != nil {
		s.metrics.failed.Inc()
	} else {
		s.metrics.completed.Inc()
	}

	item.Resolve(payload, err)
}

// dispatch maps an operation onto the engine handle. A panicking engine is
// contained here: the panic is logged and converted into a CodeInternal
// error so one poisoned operation cannot take the worker down.
func (s *storeImpl) dispatch(item *internal.Item) (payload interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("engine panicked",
				"store", s.id.String(),
				"op", item.Op.String(),
				"panic", fmt.Sprintf("%v", r),
			)
			payload = nil
			err = db.NewError(db.CodeInternal, fmt.Sprintf("engine panicked during %s: %v", item.Op, r))
		}
	}()

	// reject operations the engine cannot serve before touching it
	if required := item.Op.RequiredFeatures(); required != 0 && !s.adapter.SupportsFeature(required) {
		return nil, db.NewError(db.CodeUnsupported, fmt.Sprintf("%s operation is not supported by this engine", item.Op))
	}

	switch item.Op {
	case internal.OpGet:
		value, err := s.adapter.Get(item.Key)
		if err != nil {
			return nil, err
		}
		return value, nil

	case internal.OpSet:
		return nil, s.adapter.Set(item.Key, item.Value)

	case internal.OpSetDefault:
		// get-or-set runs as one queued operation, so no other caller can
		// slip a write between the lookup and the insert
		value, err := s.adapter.Get(item.Key)
		if err == nil {
			return internal.ValueResult{Value: value, Loaded: true}, nil
		}
		if !db.IsNotFound(err) {
			return nil, err
		}
		if err := s.adapter.Set(item.Key, item.Value); err != nil {
			return nil, err
		}
		return internal.ValueResult{Value: util.CopyBytes(item.Value), Loaded: false}, nil

	case internal.OpDelete:
		return nil, s.adapter.Delete(item.Key)

	case internal.OpHas:
		ok, err := s.adapter.Has(item.Key)
		if err != nil {
			return nil, err
		}
		return ok, nil

	case internal.OpLen:
		n, err := s.adapter.Len()
		if err != nil {
			return nil, err
		}
		return n, nil

	case internal.OpKeys:
		keys, err := s.adapter.Keys()
		if err != nil {
			return nil, err
		}
		return keys, nil

	case internal.OpFirstKey:
		key, ok, err := s.adapter.FirstKey()
		if err != nil {
			return nil, err
		}
		return internal.KeyResult{Key: key, OK: ok}, nil

	case internal.OpNextKey:
		key, ok, err := s.adapter.NextKey(item.Key)
		if err != nil {
			return nil, err
		}
		return internal.KeyResult{Key: key, OK: ok}, nil

	case internal.OpSync:
		return nil, s.adapter.Sync()

	case internal.OpReorganize:
		return nil, s.adapter.Reorganize()

	case internal.OpInfo:
		return s.adapter.Info(), nil

	default:
		return nil, db.NewError(db.CodeInternal, fmt.Sprintf("unknown operation %s", item.Op))
	}
}

// executeClose shuts the engine handle down and resolves the close item with
// the engine's close error.
func (s *storeImpl) executeClose(item *internal.Item) error {
	item.TryStart()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = db.NewError(db.CodeInternal, fmt.Sprintf("engine panicked during close: %v", r))
			}
		}()
		return s.adapter.Close()
	}()

	if err != nil {
		log.Error("engine close failed", "store", s.id.String(), "path", s.path, "err", err)
	}

	item.Resolve(nil, err)
	return err
}
