// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// formatter.go — the pluggable final-encoding step. The default strategy
// builds the serializable hash, wraps it under the schema's root key when one
// is declared, and encodes through a codec (JSON, MessagePack, CBOR).

package alba

import (
	"fmt"

	"github.com/Watson1978/alba/internal/codec"
)

// Formatter converts a bound resource into final output bytes.
type Formatter interface {
	Format(r *Resource) ([]byte, error)
}

// FormatterFunc adapts an ordinary function into a Formatter, the inline
// formatting-strategy declaration supplied at call time.
type FormatterFunc func(r *Resource) ([]byte, error)

// Format implements Formatter.
func (f FormatterFunc) Format(r *Resource) ([]byte, error) { return f(r) }

// codecFormatter is the default strategy: serializable hash, root-key wrap,
// codec encode.
type codecFormatter struct {
	codec codec.Codec
}

// NewCodecFormatter returns the default formatting strategy backed by the
// given codec.
func NewCodecFormatter(c Codec) Formatter {
	return codecFormatter{codec: c}
}

func (f codecFormatter) Format(r *Resource) ([]byte, error) {
	v, err := r.SerializableHash()
	if err != nil {
		return nil, err
	}
	if root := r.schema.root; root != "" {
		wrapped := NewHash()
		wrapped.Set(root, v)
		return f.codec.Marshal(wrapped)
	}
	return f.codec.Marshal(v)
}

// selectFormatter resolves the effective formatting strategy: the explicit
// override argument wins, then the schema's declared override, then the
// engine default. A non-nil override that is neither a Formatter nor a bare
// formatter function is ErrInvalidFormatter.
func (e *Engine) selectFormatter(s *Schema, override any) (Formatter, error) {
	switch v := override.(type) {
	case nil:
	case Formatter:
		return v, nil
	case func(r *Resource) ([]byte, error):
		return FormatterFunc(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidFormatter, override)
	}
	if s.formatter != nil {
		return s.formatter, nil
	}
	return e.formatter, nil
}
