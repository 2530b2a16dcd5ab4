// Package affinity pins the calling goroutine's OS thread to one CPU so a
// producer and a consumer can be placed on distinct cores.
package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread and, where supported,
// restricts that thread to cpu. A negative cpu only locks the thread. The
// returned func undoes the lock and must run on the same goroutine.
func Pin(cpu int) (unpin func(), err error) {
	runtime.LockOSThread()
	if cpu < 0 {
		return runtime.UnlockOSThread, nil
	}
	if err := setAffinity(cpu); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return runtime.UnlockOSThread, nil
}
