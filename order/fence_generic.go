//go:build !(amd64 || arm64) || noasm

package order

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// fenceWord is the target of the read-modify-write that implements
// FullFence on targets without a dedicated instruction.
var fenceWord struct {
	_ cpu.CacheLinePad
	v atomic.Uint32
	_ cpu.CacheLinePad
}

// FullFence orders every memory operation before it against every memory
// operation after it, for all contexts. Use it only where one
// release/acquire pair cannot express the ordering, e.g. a store to one
// cell followed by a load from another.
func FullFence() {
	fenceWord.v.Add(1)
}
