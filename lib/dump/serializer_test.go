package dump

import (
	"bytes"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() Serializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testRecords creates a set of test records with different shapes
func testRecords() []Record {
	return []Record{
		// plain entry
		{
			Key:   []byte("test-key"),
			Value: []byte("test-value"),
		},

		// empty value
		{
			Key:   []byte("empty-value"),
			Value: []byte{},
		},

		// binary key and value
		{
			Key:   []byte{0x00, 0xff, 0x00, 0x42},
			Value: []byte{0xde, 0xad, 0xbe, 0xef, 0x00},
		},

		// larger value
		{
			Key:   []byte("large"),
			Value: bytes.Repeat([]byte("0123456789abcdef"), 256),
		},
	}
}

// TestSerializerRoundTrip tests that records can be encoded and decoded correctly
func TestSerializerRoundTrip(t *testing.T) {
	records := testRecords()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, rec := range records {
				data, err := serializer.Encode(rec)
				if err != nil {
					t.Errorf("Failed to encode record %d: %v", i, err)
					continue
				}

				var result Record
				err = serializer.Decode(data, &result)
				if err != nil {
					t.Errorf("Failed to decode record %d: %v", i, err)
					continue
				}

				// gob does not keep the nil/empty distinction, so compare
				// contents rather than deep equality
				if !bytes.Equal(rec.Key, result.Key) {
					t.Errorf("Record %d key doesn't match after round trip:\nOriginal: %v\nResult: %v",
						i, rec.Key, result.Key)
				}
				if !bytes.Equal(rec.Value, result.Value) {
					t.Errorf("Record %d value doesn't match after round trip:\nOriginal: %v\nResult: %v",
						i, rec.Value, result.Value)
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests nil/empty edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		rec  Record
	}{
		{
			name: "Empty record",
			rec:  Record{},
		},
		{
			name: "Key with nil value",
			rec:  Record{Key: []byte("k"), Value: nil},
		},
		{
			name: "Key with empty but not nil value",
			rec:  Record{Key: []byte("k"), Value: []byte{}},
		},
		{
			name: "Empty but not nil key",
			rec:  Record{Key: []byte{}, Value: []byte("v")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Encode(tc.rec)
			if err != nil {
				t.Fatalf("Failed to encode: %v", err)
			}

			var result Record
			err = serializer.Decode(data, &result)
			if err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}

			if (tc.rec.Key == nil) != (result.Key == nil) {
				t.Errorf("Key nil/non-nil mismatch: expected %v, got %v", tc.rec.Key, result.Key)
			}
			if !bytes.Equal(tc.rec.Key, result.Key) {
				t.Errorf("Key mismatch: expected %v, got %v", tc.rec.Key, result.Key)
			}

			if (tc.rec.Value == nil) != (result.Value == nil) {
				t.Errorf("Value nil/non-nil mismatch: expected %v, got %v", tc.rec.Value, result.Value)
			}
			if !bytes.Equal(tc.rec.Value, result.Value) {
				t.Errorf("Value mismatch: expected %v, got %v", tc.rec.Value, result.Value)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Flags only, no fields",
			data:        []byte{0},
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 0, 0, 0, 5, 'a', 'b', 'c'}, // claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Key flag set but no length bytes",
			data:        []byte{1, 0, 0},
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{2, 0, 0, 0, 10}, // claims value length 10 but no bytes provided
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var rec Record
			err := serializer.Decode(tc.data, &rec)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"binary", "gob", "json"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "xml", "BINARY"} {
		if _, err := ParseFormat(invalid); err == nil {
			t.Errorf("ParseFormat(%q) should fail", invalid)
		}
	}
}
