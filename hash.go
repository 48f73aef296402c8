// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// hash.go — the insertion-ordered key/value structure produced by the
// serialization pipeline. Key order is the schema's declaration order and is
// preserved through JSON, MessagePack, and CBOR encoding.

package alba

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Hash is an ordered mapping from output key to value. Values are scalars,
// nested *Hash, []*Hash, or nil. It is the terminal artifact handed to a
// formatting strategy.
type Hash struct {
	keys []string
	vals map[string]any
}

// NewHash returns an empty Hash.
func NewHash() *Hash {
	return &Hash{vals: make(map[string]any)}
}

// Set stores value under key. Overwriting an existing key keeps its original
// position; a new key is appended.
func (h *Hash) Set(key string, value any) {
	if _, ok := h.vals[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.vals[key] = value
}

// Get returns the value stored under key.
func (h *Hash) Get(key string) (any, bool) {
	v, ok := h.vals[key]
	return v, ok
}

// Delete removes key. The relative order of the remaining keys is unchanged;
// deleting an absent key is a no-op.
func (h *Hash) Delete(key string) {
	if _, ok := h.vals[key]; !ok {
		return
	}
	delete(h.vals, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (h *Hash) Len() int { return len(h.keys) }

// Keys returns the keys in insertion order. The returned slice is a copy.
func (h *Hash) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// MarshalJSON encodes the hash as a JSON object with keys in insertion order.
// String values are not HTML-escaped.
func (h *Hash) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := jsonEncode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := jsonEncode(h.vals[k])
		if err != nil {
			return nil, fmt.Errorf("alba: encode %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonEncode marshals v without HTML escaping; json.Marshal would rewrite
// ">", "<", and "&" in string values as \u escapes.
func jsonEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeMsgpack encodes the hash as a MessagePack map with keys in insertion
// order. Implements msgpack.CustomEncoder.
func (h *Hash) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(h.keys)); err != nil {
		return err
	}
	for _, k := range h.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(h.vals[k]); err != nil {
			return fmt.Errorf("alba: encode %q: %w", k, err)
		}
	}
	return nil
}

// MarshalCBOR encodes the hash as a CBOR map with keys in insertion order.
// Implements cbor.Marshaler.
func (h *Hash) MarshalCBOR() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(cborMapHeader(len(h.keys)))
	for _, k := range h.keys {
		kb, err := cbor.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		vb, err := cbor.Marshal(h.vals[k])
		if err != nil {
			return nil, fmt.Errorf("alba: encode %q: %w", k, err)
		}
		buf.Write(vb)
	}
	return buf.Bytes(), nil
}

// cborMapHeader returns the CBOR major-type-5 header for a map of n pairs.
func cborMapHeader(n int) []byte {
	switch {
	case n < 24:
		return []byte{0xa0 | byte(n)}
	case n < 1<<8:
		return []byte{0xb8, byte(n)}
	case n < 1<<16:
		return []byte{0xb9, byte(n >> 8), byte(n)}
	default:
		return []byte{0xba, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}
