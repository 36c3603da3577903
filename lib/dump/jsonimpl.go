package dump

import (
	"encoding/json"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() Serializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the Serializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see dump.Serializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Encode(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

func (j jsonSerializerImpl) Decode(b []byte, rec *Record) error {
	return json.Unmarshal(b, rec)
}
