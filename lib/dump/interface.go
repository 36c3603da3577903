package dump

import (
	"fmt"
)

// Record is one archived store entry.
type Record struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// Serializer encodes single records into bytes and back. All
// implementations round-trip key and value bytes losslessly; the binary and
// JSON formats additionally preserve the nil/empty distinction of the
// slices, gob normalizes empty slices to nil.
type Serializer interface {
	// Encode serializes a record into a byte array.
	// It returns the serialized byte array and an error if any.
	Encode(rec Record) ([]byte, error)
	// Decode deserializes a byte array into a record.
	// It takes a byte array and a pointer to a record as parameters.
	// It returns an error if any.
	Decode(b []byte, rec *Record) error
}

// Format names a record encoding.
type Format string

const (
	FormatBinary Format = "binary"
	FormatGOB    Format = "gob"
	FormatJSON   Format = "json"
)

// formatIDs maps formats to the id byte stored in the archive header.
var formatIDs = map[Format]byte{
	FormatBinary: 1,
	FormatGOB:    2,
	FormatJSON:   3,
}

// NewSerializer returns the serializer for a format.
func NewSerializer(f Format) (Serializer, error) {
	switch f {
	case FormatBinary:
		return NewBinarySerializer(), nil
	case FormatGOB:
		return NewGOBSerializer(), nil
	case FormatJSON:
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown dump format %q", f)
	}
}

// ParseFormat parses a format name as given on the command line.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if _, ok := formatIDs[f]; !ok {
		return "", fmt.Errorf("unknown dump format %q (expected binary, gob or json)", s)
	}
	return f, nil
}
