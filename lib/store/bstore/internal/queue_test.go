package internal

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

func newTestItem(seq uint64) *Item {
	item := NewItem(OpSet, []byte("key"), []byte("value"))
	item.Seq = seq
	return item
}

// TestBasicOperations tests basic push and consume functionality
func TestBasicOperations(t *testing.T) {
	q := NewQueue(0)
	defer q.Close(nil)

	// Push 10 items
	for i := 0; i < 10; i++ {
		if err := q.Push(newTestItem(uint64(i))); err != nil {
			t.Fatalf("Failed to push item %d: %v", i, err)
		}
	}

	// Consume 10 items
	for i := 0; i < 10; i++ {
		select {
		case item := <-q.Recv():
			if item.Seq != uint64(i) {
				t.Errorf("Expected seq %d, got %d", i, item.Seq)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	// Make sure queue is empty
	select {
	case item := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", item)
	case <-time.After(10 * time.Millisecond):
		// Expected timeout, queue is empty
	}
}

// TestConcurrentProducers verifies the queue works correctly with multiple producers
func TestConcurrentProducers(t *testing.T) {
	q := NewQueue(0)
	defer q.Close(nil)

	const numProducers = 10
	const itemsPerProducer = 1000
	totalItems := numProducers * itemsPerProducer

	// Use a map to track received items
	var mu sync.Mutex
	received := make(map[uint64]bool)

	// Start a consumer goroutine
	done := make(chan struct{})
	receivedCount := 0

	go func() {
		defer close(done)

		for receivedCount < totalItems {
			select {
			case item := <-q.Recv():
				if item == nil {
					t.Errorf("Received nil item")
					return
				}

				mu.Lock()
				if received[item.Seq] {
					t.Errorf("Duplicate item received: %d", item.Seq)
				}
				received[item.Seq] = true
				receivedCount++
				mu.Unlock()
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout waiting for items, received %d of %d", receivedCount, totalItems)
				return
			}
		}
	}()

	// Start producers
	var wg sync.WaitGroup
	wg.Add(numProducers)

	for p := 0; p < numProducers; p++ {
		go func(producerID int) {
			defer wg.Done()

			base := producerID * itemsPerProducer
			for i := 0; i < itemsPerProducer; i++ {
				if err := q.Push(newTestItem(uint64(base + i))); err != nil {
					t.Errorf("Producer %d failed to push item %d: %v", producerID, i, err)
				}

				// Add some randomness to producer timing
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}

	// Wait for all producers to finish
	wg.Wait()

	// Wait for consumer to process all items
	select {
	case <-done:
		// Consumer finished
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}

	// Verify we got all expected items
	if receivedCount != totalItems {
		t.Errorf("Expected %d items, got %d", totalItems, receivedCount)
	}
}

// TestCloseQueue verifies closing behavior
func TestCloseQueue(t *testing.T) {
	q := NewQueue(0)

	// Push some items
	for i := 0; i < 5; i++ {
		if err := q.Push(newTestItem(uint64(i))); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	// Close the queue
	if !q.Close(nil) {
		t.Fatal("First close must succeed")
	}

	// Verify we can't push after closing
	if err := q.Push(newTestItem(100)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed after close, got %v", err)
	}

	// Verify a second close reports the queue as already closed
	if q.Close(nil) {
		t.Error("Second close must report already closed")
	}

	// Verify we can still read existing items
	for i := 0; i < 5; i++ {
		select {
		case item := <-q.Recv():
			if item.Seq != uint64(i) {
				t.Errorf("Expected seq %d, got %d", i, item.Seq)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d after close", i)
		}
	}

	// Verify the channel is closed after reading all items
	if _, ok := <-q.Recv(); ok {
		t.Error("Channel should be closed but is still open")
	}
}

// TestCloseWithFinalItem verifies the final item is delivered last
func TestCloseWithFinalItem(t *testing.T) {
	q := NewQueue(0)

	for i := 0; i < 5; i++ {
		if err := q.Push(newTestItem(uint64(i))); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	final := NewItem(OpClose, nil, nil)
	final.Seq = 99
	if !q.Close(final) {
		t.Fatal("Close with final item must succeed")
	}

	// all earlier items arrive first, in order
	var seqs []uint64
	for item := range q.Recv() {
		seqs = append(seqs, item.Seq)
	}

	if len(seqs) != 6 {
		t.Fatalf("Expected 6 items, got %d", len(seqs))
	}
	for i := 0; i < 5; i++ {
		if seqs[i] != uint64(i) {
			t.Errorf("Expected seq %d at position %d, got %d", i, i, seqs[i])
		}
	}
	if seqs[5] != 99 {
		t.Errorf("Expected final item last, got seq %d", seqs[5])
	}
}

// TestCapacityBound verifies bounded queues reject overflowing pushes
func TestCapacityBound(t *testing.T) {
	q := NewQueue(3)
	defer q.Close(nil)

	// nobody consumes yet, so the bound fills up; the consumer may already
	// have taken one item off the list, making room for one more
	accepted := 0
	rejected := 0
	for i := 0; i < 10; i++ {
		err := q.Push(newTestItem(uint64(i)))
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrQueueFull):
			rejected++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if rejected == 0 {
		t.Errorf("Expected at least one rejected push with capacity 3, accepted=%d", accepted)
	}
	if accepted < 3 {
		t.Errorf("Expected at least capacity pushes to be accepted, got %d", accepted)
	}

	// draining frees capacity again
	for i := 0; i < accepted; i++ {
		select {
		case <-q.Recv():
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout draining item %d", i)
		}
	}

	// give the consumer goroutine a moment to settle the slot accounting
	time.Sleep(10 * time.Millisecond)

	if err := q.Push(newTestItem(100)); err != nil {
		t.Errorf("Push after draining must succeed, got %v", err)
	}
}

// TestCloseBypassesCapacity verifies the final item ignores the bound
func TestCloseBypassesCapacity(t *testing.T) {
	q := NewQueue(1)

	if err := q.Push(newTestItem(0)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	// queue is full now, but the final item must still be accepted
	final := NewItem(OpClose, nil, nil)
	final.Seq = 1
	if !q.Close(final) {
		t.Fatal("Close with final item must succeed on a full queue")
	}

	var seqs []uint64
	for item := range q.Recv() {
		seqs = append(seqs, item.Seq)
	}
	if len(seqs) != 2 || seqs[1] != 1 {
		t.Errorf("Expected the final item to be delivered last, got %v", seqs)
	}
}

// TestLen verifies the length counter tracks pushes and handoffs
func TestLen(t *testing.T) {
	q := NewQueue(0)
	defer q.Close(nil)

	if q.Len() != 0 {
		t.Errorf("New queue must be empty, got %d", q.Len())
	}

	const n = 100
	for i := 0; i < n; i++ {
		if err := q.Push(newTestItem(uint64(i))); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	// the consumer may have taken a handful already
	if got := q.Len(); got > n || got < n-5 {
		t.Errorf("Expected close to %d queued items, got %d", n, got)
	}

	for i := 0; i < n; i++ {
		<-q.Recv()
	}

	// give the consumer goroutine a moment to settle
	time.Sleep(10 * time.Millisecond)
	if got := q.Len(); got != 0 {
		t.Errorf("Expected empty queue after draining, got %d", got)
	}
}

// TestOrderingUnderLoad tests that items from a single producer stay in order
func TestOrderingUnderLoad(t *testing.T) {
	q := NewQueue(0)
	defer q.Close(nil)

	const itemCount = 10000
	go func() {
		for i := 0; i < itemCount; i++ {
			q.Push(newTestItem(uint64(i)))
		}
	}()

	var prev int64 = -1
	outOfOrderCount := 0

	for i := 0; i < itemCount; i++ {
		select {
		case item := <-q.Recv():
			current := int64(item.Seq)
			if current < prev {
				outOfOrderCount++
			}
			prev = current
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	// With a single producer, items must be in order
	if outOfOrderCount > 0 {
		t.Errorf("Found %d items out of order with single producer", outOfOrderCount)
	}
}

// TestItemStateTransitions verifies the pending/running/cancelled CAS races
func TestItemStateTransitions(t *testing.T) {
	t.Run("StartWins", func(t *testing.T) {
		item := NewItem(OpGet, []byte("k"), nil)

		if !item.TryStart() {
			t.Fatal("TryStart on pending item must succeed")
		}
		if item.TryCancel() {
			t.Error("TryCancel after TryStart must fail")
		}
		if item.Cancelled() {
			t.Error("Item must not report cancelled after running won")
		}
	})

	t.Run("CancelWins", func(t *testing.T) {
		item := NewItem(OpGet, []byte("k"), nil)

		if !item.TryCancel() {
			t.Fatal("TryCancel on pending item must succeed")
		}
		if item.TryStart() {
			t.Error("TryStart after TryCancel must fail")
		}
		if !item.Cancelled() {
			t.Error("Item must report cancelled")
		}
	})

	t.Run("ResolveNeverBlocks", func(t *testing.T) {
		item := NewItem(OpGet, []byte("k"), nil)

		// no receiver, the buffered slot must absorb the result
		done := make(chan struct{})
		go func() {
			item.Resolve([]byte("value"), nil)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Resolve blocked without a receiver")
		}

		// the result stays readable afterwards
		select {
		case res := <-item.Done():
			if res.Err != nil {
				t.Errorf("Unexpected error: %v", res.Err)
			}
		default:
			t.Error("Expected buffered result to be readable")
		}
	})
}

// BenchmarkSingleProducer benchmarks the queue with a single producer
func BenchmarkSingleProducer(b *testing.B) {
	q := NewQueue(0)
	defer q.Close(nil)

	// Start consumer
	go func() {
		for range q.Recv() {
			// Just consume
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(newTestItem(uint64(i)))
	}
}

// BenchmarkMultiProducer benchmarks the queue with multiple producers
func BenchmarkMultiProducer(b *testing.B) {
	q := NewQueue(0)
	defer q.Close(nil)

	// Start consumer
	go func() {
		for range q.Recv() {
			// Just consume
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := uint64(0)
		for pb.Next() {
			q.Push(newTestItem(i))
			i++
		}
	})
}
