package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Compare compares two values using the specified operator.
// Returns an error for unknown operators.
func Compare(left, right any, op string) (bool, error) {
	switch op {
	case "==":
		return compareEquals(left, right), nil
	case "!=":
		return !compareEquals(left, right), nil
	case "<":
		return compareOrdered(left, right, func(c int) bool { return c < 0 }), nil
	case ">":
		return compareOrdered(left, right, func(c int) bool { return c > 0 }), nil
	case "<=":
		return compareOrdered(left, right, func(c int) bool { return c <= 0 }), nil
	case ">=":
		return compareOrdered(left, right, func(c int) bool { return c >= 0 }), nil
	case "contains":
		return compareContains(left, right), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

// compareEquals compares numerically when both sides are numbers and by
// string form otherwise, so 5, 5.0 and "5" are all equal.
func compareEquals(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if l, ok := AsFloat64(left); ok {
		if r, ok := AsFloat64(right); ok {
			return l == r
		}
	}
	return Stringify(left) == Stringify(right)
}

// compareOrdered orders two values numerically when possible, otherwise
// lexically. nil never orders against anything.
func compareOrdered(left, right any, accept func(int) bool) bool {
	if left == nil || right == nil {
		return false
	}
	l, lok := AsFloat64(left)
	r, rok := AsFloat64(right)
	if lok && rok {
		switch {
		case l < r:
			return accept(-1)
		case l > r:
			return accept(1)
		default:
			return accept(0)
		}
	}
	if lok != rok {
		return false
	}
	return accept(strings.Compare(Stringify(left), Stringify(right)))
}

// compareContains checks substring containment for strings, element
// membership for slices, and key presence for maps.
func compareContains(left, right any) bool {
	if left == nil {
		return false
	}
	switch l := left.(type) {
	case string:
		return strings.Contains(l, Stringify(right))
	case map[string]any:
		_, ok := l[Stringify(right)]
		return ok
	}
	rv := reflect.ValueOf(left)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if compareEquals(rv.Index(i).Interface(), right) {
				return true
			}
		}
		return false
	}
	return strings.Contains(Stringify(left), Stringify(right))
}
