package dump

import (
	"testing"
)

// benchmarkRecords returns a set of records for targeted benchmarking
func benchmarkRecords() map[string]Record {
	return map[string]Record{
		"SmallKeyOnly": {
			Key: []byte("k"),
		},
		"MediumKeyOnly": {
			Key: []byte("medium-length-key-for-testing"),
		},
		"SmallValue": {
			Key:   []byte("key"),
			Value: []byte("v"),
		},
		"MediumValue": {
			Key:   []byte("key"),
			Value: []byte("medium length value for testing serialization"),
		},
		"LargeValue": {
			Key:   []byte("key"),
			Value: make([]byte, 1024), // 1KB of data
		},
		"VeryLargeValue": {
			Key:   []byte("key"),
			Value: make([]byte, 1024*16), // 16KB of data
		},
	}
}

// BenchmarkEncode benchmarks encoding for all implementations with various record shapes
func BenchmarkEncode(b *testing.B) {
	records := benchmarkRecords()

	for name, factory := range testSerializers {
		for recName, rec := range records {
			b.Run(name+"_"+recName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Encode(rec)
					if err != nil {
						b.Fatalf("Failed to encode: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDecode benchmarks decoding for all implementations with various record shapes
func BenchmarkDecode(b *testing.B) {
	records := benchmarkRecords()
	encodedData := make(map[string]map[string][]byte)

	// Pre-encode all records with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		encodedData[name] = make(map[string][]byte)

		for recName, rec := range records {
			data, err := serializer.Encode(rec)
			if err != nil {
				b.Fatalf("Failed to encode %s with %s: %v", recName, name, err)
			}
			encodedData[name][recName] = data
		}
	}

	// Benchmark decoding
	for name, factory := range testSerializers {
		for recName := range records {
			b.Run(name+"_"+recName, func(b *testing.B) {
				serializer := factory()
				data := encodedData[name][recName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var rec Record
					err := serializer.Decode(data, &rec)
					if err != nil {
						b.Fatalf("Failed to decode: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the encoded size for each record shape
func BenchmarkSize(b *testing.B) {
	records := benchmarkRecords()

	for name, factory := range testSerializers {
		serializer := factory()

		for recName, rec := range records {
			b.Run(name+"_"+recName, func(b *testing.B) {
				data, err := serializer.Encode(rec)
				if err != nil {
					b.Fatalf("Failed to encode: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
