// Package spscring implements the index publication protocol of a bounded
// single-producer/single-consumer ring whose slots may live in memory shared
// by two processes.
//
// The producer writes slots with ordinary stores and publishes them with one
// release store of the head index. The consumer acquire-loads the head,
// reads the slots below it with ordinary loads and hands them back with a
// release store of the tail index. Ring full and ring empty are results,
// never errors. Touching a slot outside the window a side currently owns is
// a programming error and panics.
package spscring

import "fmt"

var (
	ErrQueueIsFull  = fmt.Errorf("queue is full")
	ErrQueueIsEmpty = fmt.Errorf("queue is empty")
	ErrTimeout      = fmt.Errorf("timeout")
)

// Range is a half-open window [Start, End) of absolute ring indices.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of indices in the range.
func (r Range) Len() uint64 {
	return r.End - r.Start
}

// Empty reports whether the range holds no index.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Contains reports whether idx lies in the range. Index wraparound is
// handled.
func (r Range) Contains(idx uint64) bool {
	return idx-r.Start < r.End-r.Start
}

func checkCapacity(capacity uint64) {
	if !validCapacity(capacity) {
		panic("capacity must be power of 2 and > 0")
	}
}

func validCapacity(capacity uint64) bool {
	return capacity != 0 && capacity&(capacity-1) == 0
}
