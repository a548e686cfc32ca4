package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, `name` is optional and only used in the message.
// A nil pointer, map, slice, channel or func stored in an interface counts as nil.
func NotNil(value any, name ...string) {
	if isNil(value) {
		panic(fmt.Sprintf("expected value to be not nil %v", name))
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func NotEmptyStr(str string, name ...string) {
	if str == "" {
		panic(fmt.Sprintf("expected string to be non-empty %v", name))
	}
}

// Positive panics when n is not greater than zero.
func Positive[T int | int64 | float64](n T, name ...string) {
	if n <= 0 {
		panic(fmt.Sprintf("expected a positive number, got %v %v", n, name))
	}
}
