// Package futex parks a thread on a 32-bit word until another context
// changes it and calls Wake. The word may live in memory shared between
// processes.
package futex

import "fmt"

// ErrTimeout is returned by Wait when the timeout elapsed before a wake.
var ErrTimeout = fmt.Errorf("futex: wait timed out")
