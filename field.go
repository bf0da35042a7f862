package treegrid

import (
	"reflect"
	"strings"
)

// FieldValue reads key from item: an exported struct field (exact name, then
// case-insensitive) or a string-keyed map entry. Pointers are followed.
// Anything it can't resolve is nil, which sorts last.
func FieldValue[T any](item T, key string) any {
	return fieldOf(reflect.ValueOf(item), key)
}

func fieldOf(v reflect.Value, key string) any {
	v = derefValue(v)
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		f := v.FieldByName(key)
		if !f.IsValid() {
			f = v.FieldByNameFunc(func(name string) bool {
				return strings.EqualFold(name, key)
			})
		}
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return valueOrNil(f)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		e := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
		if !e.IsValid() {
			return nil
		}
		return valueOrNil(e)
	}
	return nil
}

// valueOrNil turns nil pointers/interfaces into untyped nil so they compare
// as undefined.
func valueOrNil(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
