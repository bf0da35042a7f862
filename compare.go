package treegrid

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Direction is a sort direction.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Compare orders two sortable values. nil (undefined) is greater than any
// defined value on either side, so it sorts last ascending.
func Compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	return compareDefined(reflect.ValueOf(a), reflect.ValueOf(b))
}

// ReverseCompare is the negation of Compare.
func ReverseCompare(a, b any) int { return -Compare(a, b) }

// Comparer returns Compare or ReverseCompare for the direction.
func Comparer(dir Direction) func(a, b any) int {
	if dir == Desc {
		return ReverseCompare
	}
	return Compare
}

func compareDefined(a, b reflect.Value) int {
	a, b = derefValue(a), derefValue(b)
	if !a.IsValid() || !b.IsValid() {
		// nil pointers behave like undefined
		switch {
		case !a.IsValid() && !b.IsValid():
			return 0
		case !a.IsValid():
			return 1
		default:
			return -1
		}
	}

	if ta, ok := a.Interface().(time.Time); ok {
		if tb, ok := b.Interface().(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	switch {
	case isNumeric(a) && isNumeric(b):
		return compareNumeric(a, b)
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return strings.Compare(a.String(), b.String())
	case a.Kind() == reflect.Bool && b.Kind() == reflect.Bool:
		return compareBool(a.Bool(), b.Bool())
	}

	// fallback: compare string representations
	return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

func derefValue(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func compareNumeric(a, b reflect.Value) int {
	// exact paths first so large 64-bit values keep their precision
	switch {
	case a.CanInt() && b.CanInt():
		return sign(a.Int(), b.Int())
	case a.CanUint() && b.CanUint():
		return sign(a.Uint(), b.Uint())
	}
	return sign(toFloat(a), toFloat(b))
}

func toFloat(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func sign[N int64 | uint64 | float64](a, b N) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// Sort is a column key plus direction. Its packed form is "key" for
// ascending and "-key" for descending.
type Sort struct {
	Key       string
	Direction Direction
}

// ParseSort unpacks "key" / "-key". An empty string yields the zero Sort.
func ParseSort(s string) Sort {
	if key, ok := strings.CutPrefix(s, "-"); ok {
		return Sort{Key: key, Direction: Desc}
	}
	return Sort{Key: s, Direction: Asc}
}

func (s Sort) String() string {
	if s.Key == "" {
		return ""
	}
	if s.Direction == Desc {
		return "-" + s.Key
	}
	return s.Key
}

// NextSort is the sort a header click on key produces: a column currently
// sorted descending flips to ascending, anything else sorts descending.
func NextSort(current Sort, key string) Sort {
	if current.Key == key && current.Direction == Desc {
		return Sort{Key: key, Direction: Asc}
	}
	return Sort{Key: key, Direction: Desc}
}
