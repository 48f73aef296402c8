// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// errors.go — sentinel error variables returned by the public Alba API,
// covering schema declaration, attribute resolution, formatter selection,
// and cache backend configuration.

// Package alba is a declarative, schema-driven serialization engine: callers
// declare, per object type, an ordered mapping from output keys to plain
// accessors, computed functions, or nested associations, and the engine
// renders bound objects to JSON (or MessagePack / CBOR) with optional result
// caching across memory, Redis, and Postgres backends.
package alba

import "errors"

// Schema registry errors
var (
	ErrSchemaNotFound  = errors.New("alba: schema not registered")
	ErrSchemaDuplicate = errors.New("alba: schema already registered")
	ErrNilSchema       = errors.New("alba: schema must not be nil")
)

// Declaration errors. These are raised as panics while a schema is being
// declared, before any object is ever bound to it.
var (
	ErrMissingBlock       = errors.New("alba: attribute declaration requires a block")
	ErrInvalidAssociation = errors.New("alba: invalid association declaration")
)

// Serialization errors
var (
	ErrUnresolvedAccessor   = errors.New("alba: accessor not resolvable on object")
	ErrUnsupportedAttribute = errors.New("alba: unsupported attribute type")
	ErrInvalidFormatter     = errors.New("alba: invalid formatter argument")
)

// Config errors
var (
	ErrInvalidConfig = errors.New("alba: invalid configuration")
)

// Engine lifecycle errors
var (
	ErrClosed = errors.New("alba: engine closed")
)
