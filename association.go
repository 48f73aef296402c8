// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// association.go — nested single-valued and collection-valued associations:
// source lookup, null short-circuit, conditional gating, and delegation into
// a child schema.

package alba

import "fmt"

// Association configures a nested association declared with Schema.One or
// Schema.Many. Recognized options are validated at declaration time.
type Association struct {
	// Source is the property read off the parent object. Defaults to the
	// declared attribute name.
	Source string

	// Schema is the delegate schema instantiated per related object.
	// Exactly one of Schema and Inline must be set.
	Schema *Schema

	// Inline declares an anonymous delegate schema in place. The schema is
	// built once, at declaration time, and shared across all serializations
	// through this slot.
	Inline func(*Schema)

	// Key overrides the output key (default: the declared attribute name).
	Key string

	// If gates a single-valued association: when it returns false for the
	// related value, the association serializes to null. Only valid on One.
	If func(related any) bool

	// Filter transforms the whole related collection before serialization;
	// it receives every element and returns the (possibly reduced or
	// reordered) elements to serialize. Only valid on Many.
	Filter func(items []any) []any
}

// association is the internal, validated form of an Association.
type association struct {
	source     string
	schema     *Schema
	gate       func(any) bool
	filter     func([]any) []any
	collection bool
}

// newAssociation validates cfg and resolves the delegate schema. Declaration
// errors panic: schemas are declared at program initialization and a
// malformed declaration must never reach serialization.
func newAssociation(name string, cfg Association, collection bool) *association {
	if !collection && cfg.Filter != nil {
		panic(fmt.Errorf("%w: %q: Filter is only valid on Many", ErrInvalidAssociation, name))
	}
	if collection && cfg.If != nil {
		panic(fmt.Errorf("%w: %q: If is only valid on One", ErrInvalidAssociation, name))
	}
	if cfg.Schema != nil && cfg.Inline != nil {
		panic(fmt.Errorf("%w: %q: Schema and Inline are mutually exclusive", ErrInvalidAssociation, name))
	}
	delegate := cfg.Schema
	if delegate == nil {
		if cfg.Inline == nil {
			panic(fmt.Errorf("%w: %q: a delegate Schema or an Inline block is required", ErrMissingBlock, name))
		}
		delegate = NewSchema(name)
		cfg.Inline(delegate)
	}
	source := cfg.Source
	if source == "" {
		source = name
	}
	return &association{
		source:     source,
		schema:     delegate,
		gate:       cfg.If,
		filter:     cfg.Filter,
		collection: collection,
	}
}

// expand resolves an association slot against parent. A null or absent source
// short-circuits to nil without ever touching the delegate schema. Nested
// results are bare hashes: root-key wrapping never applies below the top
// level.
func (a *association) expand(r *Resource, parent any) (any, error) {
	value, ok := lookupProperty(parent, a.source)
	if !ok || isNilValue(value) {
		return nil, nil
	}
	if a.collection {
		return a.expandMany(r, value)
	}
	return a.expandOne(r, value)
}

func (a *association) expandOne(r *Resource, value any) (any, error) {
	if a.gate != nil && !a.gate(value) {
		return nil, nil
	}
	child := r.engine.BindParams(a.schema, value, r.params)
	return child.hashOne(value)
}

func (a *association) expandMany(r *Resource, value any) (any, error) {
	items, ok := toSlice(value)
	if !ok {
		return nil, fmt.Errorf("%w: association source %q is not iterable (%T)",
			ErrUnsupportedAttribute, a.source, value)
	}
	if a.filter != nil {
		items = a.filter(items)
	}
	out := make([]*Hash, 0, len(items))
	for _, item := range items {
		child := r.engine.BindParams(a.schema, item, r.params)
		h, err := child.hashOne(item)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
