//go:build !tilecsdebug

package assert

// Enabled reports whether expensive invariant checks run.
// Build with -tags tilecsdebug to turn them on.
const Enabled = false
