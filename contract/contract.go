// Package contract reports violated preconditions and internal
// invariants. A violation is a programming error: it panics with an
// assertion-failure error and is never returned to the caller.
package contract

import (
	"github.com/cockroachdb/errors"
)

// Require panics if a precondition of the calling operation does not hold.
func Require(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.AssertionFailedWithDepthf(1, "precondition violated: "+format, args...))
	}
}

// Ensure panics if a postcondition of the calling operation does not hold.
func Ensure(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.AssertionFailedWithDepthf(1, "postcondition violated: "+format, args...))
	}
}

// Assert panics if an internal invariant does not hold.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.AssertionFailedWithDepthf(1, "assertion failed: "+format, args...))
	}
}

// IsViolation reports whether a recovered panic value was raised by
// this package.
func IsViolation(recovered any) bool {
	err, ok := recovered.(error)
	return ok && errors.IsAssertionFailure(err)
}
