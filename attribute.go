// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// attribute.go — the closed attribute variant (accessor | computed |
// association) and the reflection-based property reads backing accessors and
// association sources.

package alba

import (
	"reflect"
	"strings"
)

// ComputedFunc is a user-supplied attribute function. It receives the target
// object and the bound resource (for ambient params and access to other
// declared attributes) and its return value becomes the slot's value
// verbatim.
type ComputedFunc func(object any, r *Resource) any

// attrKind tags the variant held by an attribute slot. The zero value is
// deliberately invalid so a hand-constructed empty slot is caught at
// resolution time.
type attrKind int

const (
	attrInvalid attrKind = iota
	attrAccessor
	attrComputed
	attrAssociation
)

func (k attrKind) String() string {
	switch k {
	case attrAccessor:
		return "accessor"
	case attrComputed:
		return "computed"
	case attrAssociation:
		return "association"
	default:
		return "invalid"
	}
}

// attribute is one declared output field. Exactly one variant is populated,
// selected by kind.
type attribute struct {
	kind   attrKind
	source string // accessor: property name on the object
	fn     ComputedFunc
	assoc  *association
}

// lookupProperty reads a named property off an arbitrary object. It supports
// map[string]any key lookup, exported struct fields (exact match first, then
// case-insensitive), and zero-argument single-result methods on the value or
// its pointer. The bool reports whether the property exists at all; a nil
// value for an existing property returns (nil, true).
func lookupProperty(object any, name string) (any, bool) {
	if object == nil {
		return nil, false
	}
	if m, ok := object.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}

	v := reflect.ValueOf(object)
	if mv, ok := methodByName(v, name); ok {
		return mv, true
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		if fv, ok := fieldByName(v, name); ok {
			return fv, true
		}
		if mv, ok := methodByName(v, name); ok {
			return mv, true
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			mv := v.MapIndex(reflect.ValueOf(name))
			if mv.IsValid() {
				return mv.Interface(), true
			}
		}
	}
	return nil, false
}

// fieldByName finds an exported struct field matching name, exactly or
// case-insensitively ("id" matches "ID").
func fieldByName(v reflect.Value, name string) (any, bool) {
	t := v.Type()
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return v.FieldByIndex(f.Index).Interface(), true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return v.Field(i).Interface(), true
		}
	}
	return nil, false
}

// methodByName invokes a zero-argument, single-result method matching name
// (exactly or case-insensitively) and returns its result.
func methodByName(v reflect.Value, name string) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || !strings.EqualFold(m.Name, name) {
			continue
		}
		mt := m.Func.Type()
		if mt.NumIn() != 1 || mt.NumOut() != 1 {
			continue
		}
		out := v.Method(i).Call(nil)
		return out[0].Interface(), true
	}
	return nil, false
}

// isNilValue reports whether v is nil, either directly or through a nil
// pointer, map, slice, or interface.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// isCollection reports whether object should be serialized element-wise. The
// heuristic is flat: slices and arrays iterate, everything else (including
// []byte) is a single object.
func isCollection(object any) bool {
	if object == nil {
		return false
	}
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	return rv.Type().Elem().Kind() != reflect.Uint8
}

// toSlice flattens an iterable value into []any, preserving order.
func toSlice(value any) ([]any, bool) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
