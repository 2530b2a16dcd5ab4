//go:build !linux

package affinity

// setAffinity is unsupported off Linux; the thread stays locked but
// unpinned.
func setAffinity(cpu int) error { return nil }
