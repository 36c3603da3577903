package dump

import (
	"encoding/binary"
	"fmt"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() Serializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements Serializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasValue byte = 1 << 1
)

// --------------------------------------------------------------------------
// Interface Methods (docu see dump.Serializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Encode(rec Record) ([]byte, error) {
	result := make([]byte, b.sizeBytes(rec))

	var flags byte = 0
	pos := 1 // start after the flags byte

	if rec.Key != nil {
		flags |= hasKey
		keyLen := len(rec.Key)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(keyLen))
		pos += 4

		if keyLen > 0 {
			copy(result[pos:pos+keyLen], rec.Key)
			pos += keyLen
		}
	}

	if rec.Value != nil {
		flags |= hasValue
		valueLen := len(rec.Value)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(valueLen))
		pos += 4

		if valueLen > 0 {
			copy(result[pos:pos+valueLen], rec.Value)
		}
	}

	result[0] = flags

	return result, nil
}

func (b binarySerializerImpl) Decode(data []byte, rec *Record) error {
	if len(data) < 1 {
		return fmt.Errorf("data too short for record header")
	}

	flags := data[0]
	pos := 1

	if flags&hasKey != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for key length")
		}

		keyLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(keyLen) > len(data) {
			return fmt.Errorf("data too short for key data")
		}

		// reuse the caller's buffer when it is large enough
		if rec.Key == nil || cap(rec.Key) < int(keyLen) {
			rec.Key = make([]byte, keyLen)
		} else {
			rec.Key = rec.Key[:keyLen]
		}
		if keyLen > 0 {
			copy(rec.Key, data[pos:pos+int(keyLen)])
		}
		pos += int(keyLen)
	} else {
		rec.Key = nil
	}

	if flags&hasValue != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for value length")
		}

		valueLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(valueLen) > len(data) {
			return fmt.Errorf("data too short for value data")
		}

		if rec.Value == nil || cap(rec.Value) < int(valueLen) {
			rec.Value = make([]byte, valueLen)
		} else {
			rec.Value = rec.Value[:valueLen]
		}
		if valueLen > 0 {
			copy(rec.Value, data[pos:pos+int(valueLen)])
		}
	} else {
		rec.Value = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for encoding
func (b binarySerializerImpl) sizeBytes(rec Record) int {
	size := 1 // flags byte

	if rec.Key != nil {
		size += 4 + len(rec.Key) // 4 bytes for length + key bytes
	}
	if rec.Value != nil {
		size += 4 + len(rec.Value) // 4 bytes for length + value bytes
	}

	return size
}
