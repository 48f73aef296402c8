package alba

import (
	"fmt"
	"sync"
)

// ────────────────────────────────────────────────────────────────────────────
// Schema
// ────────────────────────────────────────────────────────────────────────────

// Schema is the declarative serialization definition for one object type: an
// insertion-ordered mapping from output key to attribute slot, plus optional
// root key, key-casing strategy, formatter override, and cache-key
// capability.
//
// Schemas are declared once, at program initialization, and must not be
// mutated after objects start flowing through them. Declaration errors
// (missing function, malformed association) panic immediately.
type Schema struct {
	name       string
	keys       []string
	slots      map[string]attribute
	root       string
	keyFormat  KeyFormat
	formatter  Formatter
	cacheKeyFn func(object any) string
}

// NewSchema creates an empty schema. name identifies the schema in the
// engine registry and is the default root key when Root is called with an
// empty string.
func NewSchema(name string) *Schema {
	return &Schema{name: name, slots: make(map[string]attribute)}
}

// Name returns the schema's registry name.
func (s *Schema) Name() string { return s.name }

// set stores a slot under key, preserving the original position when the key
// already exists.
func (s *Schema) set(key string, a attribute) {
	if _, ok := s.slots[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.slots[key] = a
}

// Attributes declares plain accessor attributes, one per name, keyed by the
// name itself. Re-declaring an existing key overwrites the slot in place.
func (s *Schema) Attributes(names ...string) *Schema {
	for _, name := range names {
		s.set(name, attribute{kind: attrAccessor, source: name})
	}
	return s
}

// Attribute declares (or overwrites, in place) a computed attribute. The
// function receives the target object and the bound resource. A nil function
// panics with ErrMissingBlock at declaration time.
func (s *Schema) Attribute(name string, fn ComputedFunc) *Schema {
	if fn == nil {
		panic(fmt.Errorf("%w: %q", ErrMissingBlock, name))
	}
	s.set(name, attribute{kind: attrComputed, fn: fn})
	return s
}

// One declares a single-valued association. The output key is cfg.Key when
// set, otherwise name.
func (s *Schema) One(name string, cfg Association) *Schema {
	a := newAssociation(name, cfg, false)
	s.set(outputKey(name, cfg), attribute{kind: attrAssociation, assoc: a})
	return s
}

// Many declares a collection-valued association. The output key is cfg.Key
// when set, otherwise name.
func (s *Schema) Many(name string, cfg Association) *Schema {
	a := newAssociation(name, cfg, true)
	s.set(outputKey(name, cfg), attribute{kind: attrAssociation, assoc: a})
	return s
}

func outputKey(name string, cfg Association) string {
	if cfg.Key != "" {
		return cfg.Key
	}
	return name
}

// RemoveAttributes deletes the named slots. Absent names are a no-op and the
// relative order of the remaining keys is untouched.
func (s *Schema) RemoveAttributes(names ...string) *Schema {
	for _, name := range names {
		if _, ok := s.slots[name]; !ok {
			continue
		}
		delete(s.slots, name)
		for i, k := range s.keys {
			if k == name {
				s.keys = append(s.keys[:i], s.keys[i+1:]...)
				break
			}
		}
	}
	return s
}

// Root declares a root key to wrap the top-level output under. An empty key
// derives the root from the schema name. Nested associations are never
// wrapped regardless of their schema's root key.
func (s *Schema) Root(key string) *Schema {
	if key == "" {
		key = TransformKey(s.name, KeySnake)
	}
	s.root = key
	return s
}

// TransformKeys sets the key-casing strategy applied to every output key at
// serialization time.
func (s *Schema) TransformKeys(f KeyFormat) *Schema {
	s.keyFormat = f
	return s
}

// Serializer sets the schema's formatting-strategy override. The semantics
// are deliberately permissive: any value that does not satisfy Formatter
// clears the override back to unset instead of erroring.
func (s *Schema) Serializer(v any) *Schema {
	if f, ok := v.(Formatter); ok {
		s.formatter = f
	} else {
		s.formatter = nil
	}
	return s
}

// CacheKey supplies the versioned-identity function used to derive cache
// keys for objects bound to this schema. Without it (or when it returns ""),
// caching is bypassed for the object.
func (s *Schema) CacheKey(fn func(object any) string) *Schema {
	s.cacheKeyFn = fn
	return s
}

// Derive seeds a new schema as an independent deep copy of s: attribute map,
// key order, root key, key transform, formatter override, and cache-key
// function are all copied by value. Later mutation of either schema never
// affects the other.
func (s *Schema) Derive(name string) *Schema {
	d := &Schema{
		name:       name,
		keys:       make([]string, len(s.keys)),
		slots:      make(map[string]attribute, len(s.slots)),
		root:       s.root,
		keyFormat:  s.keyFormat,
		formatter:  s.formatter,
		cacheKeyFn: s.cacheKeyFn,
	}
	copy(d.keys, s.keys)
	for k, v := range s.slots {
		d.slots[k] = v
	}
	return d
}

// ────────────────────────────────────────────────────────────────────────────
// Registry
// ────────────────────────────────────────────────────────────────────────────

// schemaRegistry holds all schemas registered with an engine.
type schemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{schemas: make(map[string]*Schema)}
}

func (r *schemaRegistry) register(s *Schema) error {
	if s == nil {
		return ErrNilSchema
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[s.name]; exists {
		return fmt.Errorf("%w: %q", ErrSchemaDuplicate, s.name)
	}
	r.schemas[s.name] = s
	return nil
}

func (r *schemaRegistry) get(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	return s, nil
}
