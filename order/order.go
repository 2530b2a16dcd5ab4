// Package order provides the memory-ordering primitives used to share a
// word between two execution contexts: relaxed write/read, release store,
// acquire load and a full fence.
//
// Every access goes through sync/atomic, which is sequentially consistent
// in Go and therefore at least as strong as each named ordering. The names
// still matter: they state which guarantee a call site relies on.
package order

import (
	"sync/atomic"
	"unsafe"
)

// Word is the set of scalar types a Cell can hold. Every member is one
// machine word or less, so no access can tear.
type Word interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~uintptr
}

// Cell is a word shared between a producer and a consumer. The value is
// reachable only through the methods below.
type Cell[T Word] struct {
	_ noCopy
	_ [0]atomic.Uint64 // 8-byte alignment for 64-bit cells on 32-bit targets
	v T
}

// RelaxedWrite stores v with no ordering towards other memory operations.
func (c *Cell[T]) RelaxedWrite(v T) {
	store(&c.v, v)
}

// RelaxedRead loads the value with no ordering towards other memory
// operations.
func (c *Cell[T]) RelaxedRead() T {
	return load(&c.v)
}

// ReleaseStore stores v. Every write issued before it is visible to a
// context whose AcquireLoad observes v or a later value.
func (c *Cell[T]) ReleaseStore(v T) {
	store(&c.v, v)
}

// AcquireLoad loads the value. If it was written by ReleaseStore, all writes
// preceding that store are visible after this call returns.
func (c *Cell[T]) AcquireLoad() T {
	return load(&c.v)
}

// UnsafeAddr returns the address of the underlying word. It exists for
// kernel wait primitives such as futex and must not be dereferenced.
func (c *Cell[T]) UnsafeAddr() unsafe.Pointer {
	return unsafe.Pointer(&c.v)
}

func store[T Word](p *T, v T) {
	if unsafe.Sizeof(v) == 4 {
		atomic.StoreUint32((*uint32)(unsafe.Pointer(p)), uint32(v))
		return
	}
	atomic.StoreUint64((*uint64)(unsafe.Pointer(p)), uint64(v))
}

func load[T Word](p *T) T {
	if unsafe.Sizeof(*p) == 4 {
		return T(atomic.LoadUint32((*uint32)(unsafe.Pointer(p))))
	}
	return T(atomic.LoadUint64((*uint64)(unsafe.Pointer(p))))
}

// noCopy trips go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
