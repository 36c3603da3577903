package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bkv-project/bKV/cmd/util"
	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/logging"
	"github.com/bkv-project/bKV/lib/store/bstore"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for bridged stores",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}

	perfLog = logging.For("perf")

	perfKeyPrefix      = "__test"
	perfLargeValueSize = uint64(100 * 1024)
	perfNumThreads     = 10
	perfKeySpread      = 100
	perfSkip           = make([]string, 0)
)

// perfProfile is the shape of a --profile TOML file. Fields left out keep
// their flag values.
type perfProfile struct {
	Threads        int      `toml:"threads"`
	Keys           int      `toml:"keys"`
	LargeValueSize string   `toml:"large_value_size"`
	Skip           []string `toml:"skip"`
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().String(key, "100KB", util.WrapString("Value size for the set-large test (accepts units, e.g. 64KB or 1MiB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "profile"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional TOML file with a benchmark workload. Values in the file override the flags above"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the store's Prometheus metrics after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	size, err := util.ParseByteSize(viper.GetString("large-value-size"))
	if err != nil {
		return err
	}
	perfLargeValueSize = size

	// A profile file overrides the flag values
	if path := viper.GetString("profile"); path != "" {
		var profile perfProfile
		if _, err := toml.DecodeFile(path, &profile); err != nil {
			return fmt.Errorf("cannot read profile: %w", err)
		}
		if profile.Threads > 0 {
			perfNumThreads = profile.Threads
		}
		if profile.Keys > 0 {
			perfKeySpread = profile.Keys
		}
		if profile.LargeValueSize != "" {
			size, err := util.ParseByteSize(profile.LargeValueSize)
			if err != nil {
				return err
			}
			perfLargeValueSize = size
		}
		if len(profile.Skip) > 0 {
			perfSkip = profile.Skip
		}
	}

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for bridged stores")

	ctx := context.Background()

	info, err := kvStore.Info(ctx)
	if err != nil {
		return err
	}

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Path:    %s\n", info.Path)
	fmt.Printf("Engine:  %s\n", info.Impl)
	fmt.Printf("Entries: %d\n", info.Entries)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Keys:    %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map and latency timers
	results := make(map[string]testing.BenchmarkResult)
	registry := metrics.NewRegistry()
	timers := make(map[string]metrics.Timer)
	timerFor := func(test string) metrics.Timer {
		t := metrics.GetOrRegisterTimer(test, registry)
		timers[test] = t
		return t
	}

	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		timer := timerFor("set")

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(ctx, []byte(k)); err != nil && !db.IsNotFound(err) {
					perfLog.Error("(set) error deleting key", "err", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := kvStore.Set(ctx, []byte(getKey(counter)), []byte("test"))
				timer.UpdateSince(start)
				if err != nil {
					perfLog.Error("(set) error setting key", "err", err)
				}
				counter++
			}
		})
	})

	results["set"] = setResult
	printResult("set", setResult, timers["set"])

	setLargeValueResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		timer := timerFor("set-large")

		// prepare large value
		largeValue := make([]byte, perfLargeValueSize)

		// prepare keys
		getKey, iter := getKeys("set-large")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(ctx, []byte(k)); err != nil && !db.IsNotFound(err) {
					perfLog.Error("(set-large) error deleting key", "err", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := kvStore.Set(ctx, []byte(getKey(counter)), largeValue)
				timer.UpdateSince(start)
				if err != nil {
					perfLog.Error("(set-large) error setting key", "err", err)
				}
				counter++
			}
		})
	})

	results["set-large"] = setLargeValueResult
	printResult("set-large", setLargeValueResult, timers["set-large"])

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		timer := timerFor("get")

		// prepare keys
		getKey, iter := getKeys("get")

		// set keys
		iter(func(k string) {
			if err := kvStore.Set(ctx, []byte(k), []byte("test")); err != nil {
				perfLog.Error("(get) error setting key", "err", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(ctx, []byte(k)); err != nil && !db.IsNotFound(err) {
					perfLog.Error("(get) error deleting key", "err", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := kvStore.Get(ctx, []byte(getKey(counter)))
				timer.UpdateSince(start)
				if err != nil {
					perfLog.Error("(get) error getting key", "err", err)
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult, timers["get"])

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		timer := timerFor("delete")

		// prepare keys
		getKey, iter := getKeys("delete")

		// set keys
		iter(func(k string) {
			if err := kvStore.Set(ctx, []byte(k), []byte("test")); err != nil {
				perfLog.Error("(delete) error setting key", "err", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(ctx, []byte(k)); err != nil && !db.IsNotFound(err) {
					perfLog.Error("(delete) error deleting key", "err", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := kvStore.Delete(ctx, []byte(getKey(counter)))
				timer.UpdateSince(start)
				// The key spread wraps, so most deletes hit an already
				// deleted key. Not-found results are expected here.
				if err != nil && !db.IsNotFound(err) {
					perfLog.Error("(delete) error deleting key", "err", err)
				}
				counter++
			}
		})
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult, timers["delete"])

	hasResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has") {
			return
		}

		timer := timerFor("has")

		// prepare keys
		getKey, iter := getKeys("has")

		// set keys
		iter(func(k string) {
			if err := kvStore.Set(ctx, []byte(k), []byte("test")); err != nil {
				perfLog.Error("(has) error setting key", "err", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(ctx, []byte(k)); err != nil && !db.IsNotFound(err) {
					perfLog.Error("(has) error deleting key", "err", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := kvStore.Has(ctx, []byte(getKey(counter)))
				timer.UpdateSince(start)
				if err != nil {
					perfLog.Error("(has) error checking key", "err", err)
				}
				counter++
			}
		})
	})

	results["has"] = hasResult
	printResult("has", hasResult, timers["has"])

	hasNotResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has-not") {
			return
		}

		timer := timerFor("has-not")

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s/has-not-%d", perfKeyPrefix, counter%100)
				start := time.Now()
				_, err := kvStore.Has(ctx, []byte(key))
				timer.UpdateSince(start)
				if err != nil {
					perfLog.Error("(has-not) error checking key", "err", err)
				}
				counter++
			}
		})
	})

	results["has-not"] = hasNotResult
	printResult("has-not", hasNotResult, timers["has-not"])

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		timer := timerFor("mixed")

		// prepare keys
		getKey, iter := getKeys("mixed")

		// set keys
		iter(func(k string) {
			if err := kvStore.Set(ctx, []byte(k), []byte("test")); err != nil {
				perfLog.Error("(mixed) error setting key", "err", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(ctx, []byte(k)); err != nil && !db.IsNotFound(err) {
					perfLog.Error("(mixed) error deleting key", "err", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			key := []byte(getKey(counter))
			for pb.Next() {
				var op string
				var err error
				start := time.Now()
				switch counter % 4 {
				case 0:
					op = "set"
					err = kvStore.Set(ctx, key, []byte("test"))
				case 1:
					op = "get"
					_, err = kvStore.Get(ctx, key)
				case 2:
					op = "delete"
					err = kvStore.Delete(ctx, key)
				case 3:
					op = "has"
					_, err = kvStore.Has(ctx, key)
				}
				timer.UpdateSince(start)

				// Parallel goroutines share the key, so lookups race the
				// deletes. Not-found results are expected here.
				if err != nil && !db.IsNotFound(err) {
					perfLog.Error("(mixed) error performing operation", "op", op, "err", err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult, timers["mixed"])

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, timers); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Dump the store's own counters if requested
	if viper.GetBool("metrics") {
		if mw, ok := kvStore.(bstore.MetricsWriter); ok {
			fmt.Println()
			mw.WritePrometheus(os.Stdout)
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer metrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, timers map[string]metrics.Timer) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec",
		"P50", "P95", "P99", "Skipped",
		"Path", "Engine", "Mode", "QueueSize",
		"Threads", "LargeValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string
		var p50, p95, p99 time.Duration

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
			if timer := timers[test]; timer != nil {
				ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
				p50 = time.Duration(ps[0])
				p95 = time.Duration(ps[1])
				p99 = time.Duration(ps[2])
			}
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p50.String(),
			p95.String(),
			p99.String(),
			skipped,
			util.GetStorePath(),
			viper.GetString("engine"),
			viper.GetString("mode"),
			strconv.Itoa(viper.GetInt("queue-size")),
			strconv.Itoa(perfNumThreads),
			strconv.FormatUint(perfLargeValueSize, 10),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
