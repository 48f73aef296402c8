// Package codec provides the encoding backends behind formatting strategies.
package codec

// Codec encodes and decodes serialized output structures.
type Codec interface {
	// Marshal serializes v into bytes. Ordered-hash values implement the
	// codec's custom-encoder hook so key order survives.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes data into v (must be a pointer).
	Unmarshal(data []byte, v any) error
	// Name returns the codec identifier used for diagnostics.
	Name() string
}
