package bstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/logging"
)

// TestCallsNeverOverlapOnEngine is the core property of the bridge: no matter
// how many goroutines hammer the facade, the engine only ever sees one call
// at a time.
func TestCallsNeverOverlapOnEngine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := newFakeStore()
	fake.blockOn = func(string) { time.Sleep(50 * time.Microsecond) }

	s := openFake(t, fake, nil)

	const (
		goroutines = 32
		rounds     = 20
	)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := []byte(fmt.Sprintf("key-%d", g))
			for i := 0; i < rounds; i++ {
				assert.NoError(t, s.Set(ctx, key, []byte(fmt.Sprintf("v-%d", i))))
				got, err := s.Get(ctx, key)
				assert.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("v-%d", i), string(got))
				ok, err := s.Has(ctx, key)
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(1), fake.maxInFlight.Load(),
		"the engine must never be entered by more than one call at a time")
	assert.Len(t, fake.callList(), goroutines*rounds*3+1, "3 calls per round plus the final close")
}

// TestConcurrentCallersRealEngine runs the same hammering against a real
// engine and checks the data survives intact.
func TestConcurrentCallersRealEngine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hammer.db")

	s, err := Open(path, db.ModeCreate, &Options{Engine: db.ImplFlat})
	require.NoError(t, err)

	const (
		goroutines = 100
		keysPer    = 10
	)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < keysPer; i++ {
				key := []byte(fmt.Sprintf("g%d-k%d", g, i))
				value := []byte(fmt.Sprintf("v-%d-%d", g, i))
				assert.NoError(t, s.Set(ctx, key, value))

				// every caller reads back exactly what it wrote, no
				// cross-contamination between callers
				got, err := s.Get(ctx, key)
				assert.NoError(t, err)
				assert.Equal(t, value, got)
			}
		}(g)
	}
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, goroutines*keysPer, n)

	for g := 0; g < goroutines; g++ {
		key := []byte(fmt.Sprintf("g%d-k%d", g, keysPer-1))
		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v-%d-%d", g, keysPer-1), string(got))
	}

	require.NoError(t, s.Close(ctx))
}

// TestSetDefaultIsAtomic runs concurrent SetDefault calls for one key;
// exactly one caller may win, and every caller must observe the winner's
// value.
func TestSetDefaultIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "setdefault.db"), db.ModeCreate, &Options{Engine: db.ImplFlat})
	require.NoError(t, err)
	defer s.Close(ctx)

	const goroutines = 16
	type outcome struct {
		value  string
		loaded bool
	}
	results := make(chan outcome, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			actual, loaded, err := s.SetDefault(ctx, []byte("contested"), []byte(fmt.Sprintf("candidate-%d", g)))
			assert.NoError(t, err)
			results <- outcome{value: string(actual), loaded: loaded}
		}(g)
	}
	wg.Wait()
	close(results)

	var winners int
	var winnerValue string
	all := make([]outcome, 0, goroutines)
	for res := range results {
		all = append(all, res)
		if !res.loaded {
			winners++
			winnerValue = res.value
		}
	}
	require.Equal(t, 1, winners, "exactly one SetDefault call may insert")

	for _, res := range all {
		assert.Equal(t, winnerValue, res.value, "every caller must observe the winner's value")
	}

	got, err := s.Get(ctx, []byte("contested"))
	require.NoError(t, err)
	assert.Equal(t, winnerValue, string(got))
}

// ---------------------------------------------------------------------------
// cancellation
// ---------------------------------------------------------------------------

// gatedFake builds a fake whose call matching trigger blocks until the
// returned release function runs. started is signalled when the call begins.
func gatedFake(trigger string) (fake *fakeStore, started chan string, release func()) {
	fake = newFakeStore()
	started = make(chan string, 16)
	gate := make(chan struct{})
	fake.blockOn = func(call string) {
		if call == trigger {
			started <- call
			<-gate
		}
	}
	var once sync.Once
	return fake, started, func() { once.Do(func() { close(gate) }) }
}

func requireCancelled(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := db.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, db.CodeCancelled, code)
	assert.ErrorIs(t, err, context.Canceled, "the context error must stay reachable in the chain")
}

// TestCancelWhileQueued cancels an operation that is still waiting behind a
// slow one. The waiter must return promptly and the engine must never see
// the cancelled operation.
func TestCancelWhileQueued(t *testing.T) {
	t.Parallel()

	fake, started, release := gatedFake("set:slow")
	defer release()
	s := openFake(t, fake, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Set(context.Background(), []byte("slow"), []byte("v")))
	}()
	<-started // the worker is now stuck inside the engine

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err := s.Get(ctx, []byte("victim"))
		waiterErr <- err
	}()

	time.Sleep(50 * time.Millisecond) // let the Get reach the queue
	cancel()

	select {
	case err := <-waiterErr:
		requireCancelled(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter did not return while the worker was blocked")
	}

	release()
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))

	assert.NotContains(t, fake.callList(), "get:victim",
		"an operation cancelled while queued must never reach the engine")
}

// TestCancelWhileExecuting cancels an operation the worker has already
// started. The caller must return promptly while the engine runs the
// operation to completion; the discarded result must not wedge the worker.
func TestCancelWhileExecuting(t *testing.T) {
	t.Parallel()

	fake, started, release := gatedFake("get:slow")
	defer release()
	s := openFake(t, fake, nil)

	require.NoError(t, s.Set(context.Background(), []byte("slow"), []byte("v")))

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err := s.Get(ctx, []byte("slow"))
		waiterErr <- err
	}()
	<-started // the worker is executing the victim now

	cancel()
	select {
	case err := <-waiterErr:
		requireCancelled(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return while its operation was executing")
	}

	release()

	// the worker survived the discarded result and keeps serving
	require.NoError(t, s.Set(context.Background(), []byte("after"), []byte("v")))
	require.NoError(t, s.Close(context.Background()))

	assert.Contains(t, fake.callList(), "get:slow",
		"an operation cancelled mid-execution still runs to completion on the engine")
}

func TestPreCancelledContext(t *testing.T) {
	t.Parallel()

	fake := newFakeStore()
	s := openFake(t, fake, nil)
	defer s.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, []byte("k"), []byte("v"))
	requireCancelled(t, err)
	assert.Empty(t, fake.callList(), "a pre-cancelled context must not reach the engine")
}

// ---------------------------------------------------------------------------
// shutdown ordering
// ---------------------------------------------------------------------------

// TestQueuedOpsFinishBeforeClose verifies that operations accepted before
// Close still execute, and that the engine close runs strictly after them.
func TestQueuedOpsFinishBeforeClose(t *testing.T) {
	t.Parallel()

	fake, started, release := gatedFake("set:block")
	defer release()
	s := openFake(t, fake, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Set(context.Background(), []byte("block"), []byte("v")))
	}()
	<-started

	// pile up writes behind the blocked one
	const queued = 5
	for i := 0; i < queued; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Set(context.Background(), []byte(fmt.Sprintf("q-%d", i)), []byte("v")))
		}(i)
	}
	time.Sleep(50 * time.Millisecond) // let them reach the queue

	closeErr := make(chan error, 1)
	go func() { closeErr <- s.Close(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	release()
	wg.Wait()
	require.NoError(t, <-closeErr)

	calls := fake.callList()
	require.NotEmpty(t, calls)
	assert.Equal(t, "close", calls[len(calls)-1], "the engine close must be the final engine call")
	for i := 0; i < queued; i++ {
		assert.Contains(t, calls, fmt.Sprintf("set:q-%d", i),
			"operations queued before Close must still execute")
	}
}

// TestOpsDuringCloseFailFast verifies that new operations are refused as
// soon as closing begins, even while the engine close is still running.
func TestOpsDuringCloseFailFast(t *testing.T) {
	t.Parallel()

	fake, started, release := gatedFake("close")
	defer release()
	s := openFake(t, fake, nil)

	closeErr := make(chan error, 1)
	go func() { closeErr <- s.Close(context.Background()) }()
	<-started // the engine close is in progress

	err := s.Set(context.Background(), []byte("late"), []byte("v"))
	assert.True(t, db.IsClosed(err), "operations during close must fail with CodeClosed, got %v", err)

	release()
	require.NoError(t, <-closeErr)
	assert.NotContains(t, fake.callList(), "set:late")
}

// ---------------------------------------------------------------------------
// queue bound
// ---------------------------------------------------------------------------

func TestQueueBoundRejectsWithBusy(t *testing.T) {
	t.Parallel()

	fake, started, release := gatedFake("set:block")
	defer release()
	s := openFake(t, fake, &Options{QueueSize: 2})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Set(context.Background(), []byte("block"), []byte("v")))
	}()
	<-started
	time.Sleep(20 * time.Millisecond) // let the queue account for the handoff

	// fill the queue to its bound
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Set(context.Background(), []byte(fmt.Sprintf("q-%d", i)), []byte("v")))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)

	// the bound is reached, further calls must be refused immediately
	err := s.Set(context.Background(), []byte("overflow"), []byte("v"))
	require.Error(t, err)
	assert.True(t, db.IsBusy(err), "a full queue must fail with CodeBusy, got %v", err)

	release()
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))

	calls := fake.callList()
	assert.NotContains(t, calls, "set:overflow")
	assert.Contains(t, calls, "set:q-0")
	assert.Contains(t, calls, "set:q-1")

	// closing still worked on a store with a bounded queue
	assert.Equal(t, "close", calls[len(calls)-1])
}

// ---------------------------------------------------------------------------
// worker robustness
// ---------------------------------------------------------------------------

// TestWorkerSurvivesEnginePanic feeds the worker a panicking engine call and
// checks the panic is contained, logged and converted into an error while
// the store keeps serving.
func TestWorkerSurvivesEnginePanic(t *testing.T) {
	// no t.Parallel(), the log capture swaps the process-wide default logger

	capture := logging.CaptureForTest()
	defer capture.Restore()

	fake := newFakeStore()
	fake.blockOn = func(call string) {
		if call == "get:boom" {
			panic("engine exploded")
		}
	}
	s := openFake(t, fake, nil)

	_, err := s.Get(context.Background(), []byte("boom"))
	require.Error(t, err)
	code, ok := db.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, db.CodeInternal, code)
	assert.Contains(t, err.Error(), "panicked")

	// the worker survived and keeps executing
	require.NoError(t, s.Set(context.Background(), []byte("after"), []byte("v")))
	got, err := s.Get(context.Background(), []byte("after"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, capture.Has(slog.LevelError, "engine panicked"), "the panic must be logged")
}
