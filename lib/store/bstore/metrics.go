package bstore

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// storeMetrics tracks what happens to operations on their way through the
// queue. Every store gets its own metrics set labelled with the store id,
// so several stores in one process stay distinguishable.
type storeMetrics struct {
	set *metrics.Set

	// enqueued counts operations accepted into the queue.
	enqueued *metrics.Counter
	// completed counts operations the worker executed without error.
	completed *metrics.Counter
	// failed counts operations the engine returned an error for.
	failed *metrics.Counter
	// cancelled counts operations withdrawn by their caller while still
	// waiting in the queue.
	cancelled *metrics.Counter
	// rejected counts operations refused because the queue was full.
	rejected *metrics.Counter

	// latency tracks engine execution time per operation, queue wait
	// excluded.
	latency *metrics.Histogram
}

// newStoreMetrics creates the metrics set for one store. queueLen is polled
// whenever the queue length gauge is scraped.
func newStoreMetrics(storeID string, queueLen func() float64) *storeMetrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`bkv_%s{store=%q}`, metric, storeID)
	}

	m := &storeMetrics{
		set:       set,
		enqueued:  set.NewCounter(name("ops_enqueued_total")),
		completed: set.NewCounter(name("ops_completed_total")),
		failed:    set.NewCounter(name("ops_failed_total")),
		cancelled: set.NewCounter(name("ops_cancelled_total")),
		rejected:  set.NewCounter(name("ops_rejected_total")),
		latency:   set.NewHistogram(name("op_duration_seconds")),
	}
	set.NewGauge(name("queue_length"), queueLen)

	return m
}

// writePrometheus dumps the store's metrics in Prometheus text format.
func (m *storeMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
