//go:build tilecsdebug

package assert

const Enabled = true
