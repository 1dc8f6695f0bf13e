package wasgen

import (
	"fmt"
	"strings"
)

// BuilderError is returned by every mutation that fails validation. It
// names the offending entity (by its human id, prefixed with "$", or its
// numeric index when it has no id), the operation that was attempted, and,
// for type-check failures, the expected and found type sequences.
type BuilderError struct {
	Op       string
	Entity   string
	Expected []string
	Found    []string
	Detail   string
}

func (e *BuilderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Expected != nil || e.Found != nil {
		b.WriteString(fmt.Sprintf(": expected %v, found %v", e.Expected, e.Found))
	}
	return b.String()
}

func entityName(id string, index uint32) string {
	if id != "" {
		return "$" + id
	}
	return fmt.Sprintf("[%d]", index)
}

func errf(op, entity, format string, args ...interface{}) *BuilderError {
	return &BuilderError{Op: op, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}

func typeMismatch(op, entity string, expected, found []string) *BuilderError {
	return &BuilderError{Op: op, Entity: entity, Expected: expected, Found: found}
}

// deferredErrors accumulates errors raised during implicit cleanup (closing
// a sink via a destructor-style path rather than an explicit Close call):
// such errors cannot be returned synchronously, so they are deposited here
// and surfaced on the module's next explicit operation or its own Close.
// Only the first deferred error is retained, per spec.
type deferredErrors struct {
	err error
}

func (d *deferredErrors) record(err error) {
	if err != nil && d.err == nil {
		d.err = err
	}
}

// drain returns and clears the pending deferred error, if any.
func (d *deferredErrors) drain() error {
	err := d.err
	d.err = nil
	return err
}
