// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// serialize.go — the serialization pipeline: a Resource binds one schema to
// one object (or homogeneous collection), resolves each attribute slot in
// declaration order into an ordered hash, and renders through the selected
// formatting strategy with optional cache fetch-or-compute.

package alba

import (
	"context"
	"fmt"
)

// Params are shared parameters made available to computed attributes and
// propagated into nested associations.
type Params map[string]any

// Resource is one schema bound to one target object (or collection). It is
// cheap to construct and single-use friendly; all state lives in the schema
// and the engine.
type Resource struct {
	engine *Engine
	schema *Schema
	object any
	params Params
}

// Object returns the bound target object.
func (r *Resource) Object() any { return r.object }

// Schema returns the governing schema.
func (r *Resource) Schema() *Schema { return r.schema }

// Param returns a shared parameter by name, or nil.
func (r *Resource) Param(name string) any { return r.params[name] }

// Attr resolves another declared attribute of the bound object, giving
// computed functions ambient access to their sibling slots.
func (r *Resource) Attr(name string) (any, error) {
	slot, ok := r.schema.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedAccessor, name)
	}
	return r.resolveSlot(r.object, name, slot)
}

// ────────────────────────────────────────────────────────────────────────────
// Hash construction
// ────────────────────────────────────────────────────────────────────────────

// SerializableHash produces the ordered output structure for the bound
// object: a *Hash for a single object, a []*Hash for a collection. Recursion
// through nested associations is bounded only by the depth of the object
// graph; the engine performs no cycle detection.
func (r *Resource) SerializableHash() (any, error) {
	if isCollection(r.object) {
		items, _ := toSlice(r.object)
		out := make([]*Hash, 0, len(items))
		for _, item := range items {
			// Each element gets its own binding so computed functions see the
			// element, not the collection, through the resource.
			elem := r.engine.BindParams(r.schema, item, r.params)
			h, err := elem.hashOne(item)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
		return out, nil
	}
	return r.hashOne(r.object)
}

// hashOne runs the attribute pipeline over a single object. Keys are emitted
// in declaration order, transformed by the schema's key-casing strategy.
func (r *Resource) hashOne(object any) (*Hash, error) {
	h := NewHash()
	for _, key := range r.schema.keys {
		slot := r.schema.slots[key]
		v, err := r.resolveSlot(object, key, slot)
		if err != nil {
			return nil, err
		}
		h.Set(TransformKey(key, r.schema.keyFormat), v)
	}
	return h, nil
}

// resolveSlot resolves one attribute slot against object. The variant switch
// is exhaustive; anything else is a malformed slot.
func (r *Resource) resolveSlot(object any, key string, slot attribute) (any, error) {
	switch slot.kind {
	case attrAccessor:
		v, ok := lookupProperty(object, slot.source)
		if !ok {
			return nil, fmt.Errorf("%w: %q (%T)", ErrUnresolvedAccessor, slot.source, object)
		}
		return v, nil
	case attrComputed:
		return slot.fn(object, r), nil
	case attrAssociation:
		return slot.assoc.expand(r, object)
	default:
		return nil, fmt.Errorf("%w: key %q holds a %s slot", ErrUnsupportedAttribute, key, slot.kind)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Rendering
// ────────────────────────────────────────────────────────────────────────────

// Serialize renders the resource through the schema's formatting strategy
// (or the engine default), consulting the cache when the schema can derive a
// cache key for the object.
func (r *Resource) Serialize(ctx context.Context) ([]byte, error) {
	return r.serialize(ctx, nil, true)
}

// SerializeWith renders with an explicit formatting-strategy override: a
// Formatter, a FormatterFunc, or a bare func(*Resource) ([]byte, error).
// Anything else is ErrInvalidFormatter. Overridden calls bypass the cache:
// the cache key does not encode the formatter identity.
func (r *Resource) SerializeWith(ctx context.Context, formatter any) ([]byte, error) {
	return r.serialize(ctx, formatter, formatter == nil)
}

func (r *Resource) serialize(ctx context.Context, override any, useCache bool) ([]byte, error) {
	e := r.engine
	if e.closed.Load() {
		return nil, ErrClosed
	}
	f, err := e.selectFormatter(r.schema, override)
	if err != nil {
		return nil, err
	}

	e.stats.Serializations.Add(1)
	start := e.cfg.Clock.Now()
	out, err := r.render(ctx, f, useCache)
	e.metrics.RecordLatency(r.schema.name, "serialize", e.cfg.Clock.Now().Sub(start))
	if err != nil {
		e.stats.Errors.Add(1)
		e.metrics.RecordError(r.schema.name, "serialize")
		e.logger.Error("serialize failed", "schema", r.schema.name, "err", err)
	}
	return out, err
}

func (r *Resource) render(ctx context.Context, f Formatter, useCache bool) ([]byte, error) {
	key := ""
	if useCache {
		key = cacheKeyFor(r.schema, r.object)
	}
	if key == "" {
		return f.Format(r)
	}
	sealed, err := r.engine.cache.FetchOrCompute(ctx, key, func() ([]byte, error) {
		b, err := f.Format(r)
		if err != nil {
			return nil, err
		}
		return r.engine.seal(b)
	})
	if err != nil {
		return nil, err
	}
	return r.engine.open(sealed)
}

// cacheKeyFor derives the cache key for object under schema s, or "" when
// the schema has no cache-key function, the object yields no identity, or
// the object is a collection (collections are never cached as a unit).
func cacheKeyFor(s *Schema, object any) string {
	if s.cacheKeyFn == nil || object == nil || isCollection(object) {
		return ""
	}
	id := s.cacheKeyFn(object)
	if id == "" {
		return ""
	}
	return s.name + ":" + id
}
