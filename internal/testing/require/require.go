// Package require contains a minimal, dependency-free subset of testify's
// require package. It exists so that low-level packages (leb128, the binary
// encoder) can assert without adding a hard compile-time dependency from
// those packages onto testify, matching the layering in the teacher's own
// test tree.
package require

import (
	"fmt"
	"reflect"
	"strings"
)

// TestingT is implemented by *testing.T. It is an interface so tests of this
// package itself can supply a mock.
type TestingT interface {
	Helper()
	Fatal(args ...interface{})
}

func fail(t TestingT, message, expected string, formatWithArgs ...interface{}) {
	t.Helper()
	msg := message
	if expected != "" {
		msg = expected
	}
	if len(formatWithArgs) > 0 {
		format, rest := formatWithArgs[0], formatWithArgs[1:]
		if s, ok := format.(string); ok && strings.Contains(s, "%") {
			msg = msg + ": " + fmt.Sprintf(s, rest...)
		} else {
			parts := make([]string, 0, len(formatWithArgs))
			for _, a := range formatWithArgs {
				parts = append(parts, fmt.Sprintf("%v", a))
			}
			msg = msg + ": " + strings.Join(parts, " ")
		}
	}
	t.Fatal(msg)
}

// NoError fails the test if err is non-nil.
func NoError(t TestingT, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		fail(t, fmt.Sprintf("unexpected error: %v", err), "", msgAndArgs...)
	}
}

// Error fails the test if err is nil.
func Error(t TestingT, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		fail(t, "expected an error, but was nil", "", msgAndArgs...)
	}
}

// EqualError fails the test unless err is non-nil and its message equals expected.
func EqualError(t TestingT, err error, expected string, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		fail(t, fmt.Sprintf("expected error %q, but was nil", expected), "", msgAndArgs...)
		return
	}
	if err.Error() != expected {
		fail(t, fmt.Sprintf("expected error %q, but was %q", expected, err.Error()), "", msgAndArgs...)
	}
}

// Equal fails the test unless expected and actual are deeply equal.
func Equal(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !objectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("expected %s, but was %s", describe(expected), describe(actual)), "", msgAndArgs...)
	}
}

// NotEqual fails the test if expected and actual are deeply equal.
func NotEqual(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if objectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("expected %s to not equal %s", describe(expected), describe(actual)), "", msgAndArgs...)
	}
}

// True fails the test unless v is true.
func True(t TestingT, v bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !v {
		fail(t, "expected true, but was false", "", msgAndArgs...)
	}
}

// False fails the test unless v is false.
func False(t TestingT, v bool, msgAndArgs ...interface{}) {
	t.Helper()
	if v {
		fail(t, "expected false, but was true", "", msgAndArgs...)
	}
}

// Zero fails the test unless v is the zero value of its type.
func Zero(t TestingT, v interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if v != nil && !reflect.DeepEqual(v, reflect.Zero(reflect.TypeOf(v)).Interface()) {
		fail(t, fmt.Sprintf("expected zero value, but was %s", describe(v)), "", msgAndArgs...)
	}
}

// Nil fails the test unless v is nil.
func Nil(t TestingT, v interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		if rv.IsNil() {
			return
		}
	}
	fail(t, fmt.Sprintf("expected nil, but was %s", describe(v)), "", msgAndArgs...)
}

// Contains fails the test unless s contains substr.
func Contains(t TestingT, s, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(s, substr) {
		fail(t, fmt.Sprintf("expected %q to contain %q", s, substr), "", msgAndArgs...)
	}
}

func objectsAreEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == actual
	}
	if exp, ok := expected.([]byte); ok {
		act, ok := actual.([]byte)
		if !ok {
			return false
		}
		if len(exp) != len(act) {
			return false
		}
		for i := range exp {
			if exp[i] != act[i] {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(expected, actual)
}

func describe(v interface{}) string {
	if v == nil {
		return "nil"
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("%#v", b)
	}
	return fmt.Sprintf("%#v", v)
}

// CapturePanic runs fn and returns the recovered panic as an error, or nil
// if fn didn't panic.
func CapturePanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	fn()
	return
}
