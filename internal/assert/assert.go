package assert

import (
	"fmt"
)

// That panics with the formatted message if cond is false.
// Used for programmer contract violations that are never recoverable.
func That(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// InRange panics if idx is not a valid index into a sequence of the given length.
func InRange(idx, length int, what string) {
	if idx < 0 || idx >= length {
		panic(fmt.Sprintf("%s %d out of range [0, %d)", what, idx, length))
	}
}

// Invariants runs the given check if expensive assertions are enabled
// and panics on the first reported violation.
func Invariants(check func() error) {
	if !Enabled {
		return
	}

	if err := check(); err != nil {
		panic(fmt.Sprintf("invariant violated: %s", err))
	}
}
