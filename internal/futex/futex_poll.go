//go:build !linux

package futex

import (
	"sync/atomic"
	"time"
	"unsafe"
)

const pollInterval = 50 * time.Microsecond

// Wait polls the word at addr until it differs from val or the timeout
// elapses. A timeout <= 0 waits forever.
func Wait(addr unsafe.Pointer, val uint32, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for atomic.LoadUint32((*uint32)(addr)) == val {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// Wake is a no-op: pollers notice the changed word on their own.
func Wake(addr unsafe.Pointer, n int) (int, error) {
	return 0, nil
}
