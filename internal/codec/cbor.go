package codec

import "github.com/fxamacker/cbor/v2"

// CBOR is a binary codec using RFC 8949 CBOR encoding.
type CBOR struct{}

// Marshal serializes v to CBOR bytes.
func (CBOR) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// Unmarshal deserializes CBOR bytes into v.
func (CBOR) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// Name returns "cbor".
func (CBOR) Name() string { return "cbor" }
