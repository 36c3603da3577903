package internal

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Errors returned by Queue.Push.
var (
	// ErrQueueClosed is returned once the queue stopped accepting items.
	ErrQueueClosed = errors.New("queue closed")

	// ErrQueueFull is returned when a capacity bound rejects an item.
	ErrQueueFull = errors.New("queue full")
)

// node represents a single element in the queue
type node struct {
	item *Item
	next atomic.Pointer[node]
}

// Queue is a lock-free multi-producer single-consumer queue of work items.
// Implementation uses a linked list of nodes with atomic operations for
// concurrent push operations without locks.
//
// Features and Guarantees:
//
//   - Lock-free linking: producers append via CAS and never block each
//     other; a mutex is only taken briefly to hand the consumer its wakeup
//     signal
//   - FIFO: items reach the consumer in the order the linking CAS of each
//     Push succeeds. That CAS is the linearization point of Push, so the
//     execution order of the consumer is exactly the enqueue order.
//   - Optional Bound: a capacity > 0 rejects further pushes with
//     ErrQueueFull instead of growing without limit
//   - Thread-Safe writes: any number of goroutines may Push concurrently
//   - Single Consumer: designed for a single goroutine to consume values
//     (via the Recv() channel)
type Queue struct {
	head     atomic.Pointer[node]
	tail     atomic.Pointer[node]
	out      chan *Item
	consumer sync.WaitGroup
	closed   atomic.Bool

	capacity int          // 0 = unbounded
	length   atomic.Int64 // pushed but not yet handed to the consumer

	// Condition variable for efficient waiting
	mu   sync.Mutex
	cond *sync.Cond
}

// NewQueue creates a new queue. A capacity of 0 leaves the queue unbounded;
// any positive value bounds the number of items waiting for the consumer.
func NewQueue(capacity int) *Queue {
	// Create a sentinel node (dummy node at the beginning)
	sentinel := &node{}

	q := &Queue{
		out:      make(chan *Item),
		capacity: capacity,
	}

	// Initialize condition variable
	q.cond = sync.NewCond(&q.mu)

	// Set the initial head and tail to the sentinel node
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push adds an item to the queue. A nil return means the queue owns the item
// and will hand it to the consumer. After Close it returns ErrQueueClosed,
// and ErrQueueFull when a capacity bound is exceeded.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *Queue) Push(item *Item) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	// Reserve a slot before linking so the bound holds under contention.
	n := q.length.Add(1)
	if q.capacity > 0 && n > int64(q.capacity) {
		q.length.Add(-1)
		return ErrQueueFull
	}

	q.pushNode(&node{item: item})
	q.wakeConsumer()

	return nil
}

// wakeConsumer signals the consumer. The signal is sent while holding the
// lock the consumer double-checks under, so it cannot fall between the
// consumer's recheck and its wait and get lost.
func (q *Queue) wakeConsumer() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// pushNode appends a prepared node to the linked list. This is the raw
// lock-free append shared by Push and Close.
func (q *Queue) pushNode(newNode *node) {
	var backoff uint8 = 0

	for {
		tailNode := q.tail.Load()

		// try to atomically append our node to the current tail
		next := tailNode.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our node
			if tailNode.next.CompareAndSwap(nil, newNode) {
				/*
				 Successfully appended, now try to update tail
				 Note: CAS may fail if another producer helps update tail,
				 but that's okay - tail will still be updated eventually
				*/
				q.tail.CompareAndSwap(tailNode, newNode)
				return
			}
		} else {
			// help update the tail pointer if another producer has already appended a node but hasn't updated the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		/*
		 Implement exponential backoff strategy to handle contention
		  - At low contention (<10 retries): Use CPU spinning to avoid thread scheduling overhead
		  - At higher contention: Yield the processor to allow other goroutines to make progress
		  - Backoff increases exponentially with each retry, reducing the "thundering herd" problem where all goroutines retry simultaneously after failure
		*/

		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume continuously sends items from the linked list to the output channel and frees memory
func (q *Queue) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		// Process all available items in the queue
		hasItems := false

		// Try to process items
		for {
			head := q.head.Load()
			next := head.next.Load()

			if next == nil {
				break // No more items available
			}

			hasItems = true

			// Capture value before updating pointers
			item := next.item

			// move head pointer (free up memory)
			q.head.Store(next)

			// Send the value to the consumer
			q.out <- item
			q.length.Add(-1)

			// help go gc - safe to clear after sending
			next.item = nil
		}

		// Exit if closed and no more items
		if !hasItems && q.closed.Load() {
			return
		}

		// If no items were processed, wait for signal
		if !hasItems {
			q.mu.Lock()
			// Double-check condition after acquiring lock
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				// Wait for signal (releases lock while waiting)
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns a receive-only channel for consuming from the queue. The
// channel closes once the queue is closed and fully drained.
func (q *Queue) Recv() <-chan *Item {
	return q.out
}

// Close closes the queue, preventing further writes. When final is non-nil
// it is appended as the last accepted item, bypassing any capacity bound.
// Items already in the queue will still be delivered to the consumer.
//
// Returns false if the queue was already closed; the final item is then not
// enqueued.
func (q *Queue) Close(final *Item) bool {
	if !q.closed.CompareAndSwap(false, true) {
		return false
	}

	if final != nil {
		q.length.Add(1)
		q.pushNode(&node{item: final})
	}
	q.wakeConsumer()

	return true
}

// IsClosed returns true if the queue is closed.
func (q *Queue) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of items waiting for the consumer.
//
// Thread-safety: This method is thread-safe, the count is maintained with
// atomic operations.
func (q *Queue) Len() int {
	if n := q.length.Load(); n > 0 {
		return int(n)
	}
	return 0
}
