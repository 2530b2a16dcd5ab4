package spscring

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/aradilov/spscring/order"
)

const (
	regionMagic = 0x53505343 // "SPSC"

	// slotsOffsetAlign keeps the first slot off the header's last line.
	slotsOffsetAlign = 64

	flagNeedWakeup uint32 = 1 << 0
)

var (
	ErrRegionTooSmall       = fmt.Errorf("region memory too small")
	ErrRegionMisaligned     = fmt.Errorf("region memory misaligned")
	ErrRegionNotInitialized = fmt.Errorf("region not initialized")
	ErrRegionLayout         = fmt.Errorf("region layout mismatch")
)

// header is the part of a region both sides address. Each hot word sits
// on its own cache line. The layout is shared between processes built
// for the same architecture.
type header struct {
	magic    order.Cell[uint32] // release-stored last during init
	slotSize order.Cell[uint32]
	capacity order.Cell[uint64]
	_        cpu.CacheLinePad
	head     order.Cell[uint64] // written by the producer only
	_        cpu.CacheLinePad
	tail     order.Cell[uint64] // written by the consumer only
	_        cpu.CacheLinePad
	flags    order.Cell[uint32] // written by the consumer only
	_        cpu.CacheLinePad
	wake     order.Cell[uint32] // written by the producer only; futex word
	_        cpu.CacheLinePad
}

func (h *header) init(capacity uint64, slotSize uintptr) {
	h.slotSize.RelaxedWrite(uint32(slotSize))
	h.capacity.RelaxedWrite(capacity)
	h.head.RelaxedWrite(0)
	h.tail.RelaxedWrite(0)
	h.flags.RelaxedWrite(0)
	h.wake.RelaxedWrite(0)
	h.magic.ReleaseStore(regionMagic)
}

// Region is the shared state of one ring: the header and the slot array.
// It is handed to exactly one Producer and one Consumer, which may run in
// different goroutines or, for a region laid over shared memory, in
// different processes.
type Region[T any] struct {
	hdr      *header
	slots    []T
	mask     uint64
	capacity uint64

	producer atomic.Bool
	consumer atomic.Bool
}

// NewRegion allocates a region on the Go heap.
// Capacity must be a power of two (1<<k).
func NewRegion[T any](capacity uint64) *Region[T] {
	checkCapacity(capacity)

	var zero T
	r := &Region[T]{
		hdr:      new(header),
		slots:    make([]T, capacity),
		mask:     capacity - 1,
		capacity: capacity,
	}
	r.hdr.init(capacity, unsafe.Sizeof(zero))
	return r
}

func slotsOffset() uintptr {
	return (unsafe.Sizeof(header{}) + slotsOffsetAlign - 1) &^ (slotsOffsetAlign - 1)
}

// RegionSize returns how many bytes InitRegion needs for capacity records
// of type T. It panics if that size does not fit in an int.
func RegionSize[T any](capacity uint64) int {
	need, err := regionSize[T](capacity)
	if err != nil {
		panic("spscring: " + err.Error())
	}
	return need
}

func regionSize[T any](capacity uint64) (int, error) {
	var zero T
	off := uint64(slotsOffset())
	size := uint64(unsafe.Sizeof(zero))
	if size != 0 && capacity > (math.MaxInt-off)/size {
		return 0, fmt.Errorf("%w: %d slots of %d bytes overflow the address space", ErrRegionLayout, capacity, size)
	}
	return int(off + capacity*size), nil
}

// InitRegion lays a fresh region over mem, typically a shared memory
// segment, and publishes its header. T must not contain Go pointers: the
// slots are invisible to the garbage collector and readable by another
// process.
func InitRegion[T any](mem []byte, capacity uint64) (*Region[T], error) {
	if !validCapacity(capacity) {
		return nil, fmt.Errorf("%w: capacity %d is not a power of two", ErrRegionLayout, capacity)
	}
	r, err := layRegion[T](mem, capacity)
	if err != nil {
		return nil, err
	}
	var zero T
	r.hdr.init(capacity, unsafe.Sizeof(zero))
	return r, nil
}

// AttachRegion maps the region that InitRegion published in mem. It returns
// ErrRegionNotInitialized while the initializing side has not finished,
// so callers may retry.
func AttachRegion[T any](mem []byte) (*Region[T], error) {
	if uintptr(len(mem)) < slotsOffset() {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegionTooSmall, len(mem))
	}
	if err := checkAlign[T](mem); err != nil {
		return nil, err
	}

	hdr := (*header)(unsafe.Pointer(&mem[0]))
	if hdr.magic.AcquireLoad() != regionMagic {
		return nil, ErrRegionNotInitialized
	}

	var zero T
	if size := hdr.slotSize.RelaxedRead(); size != uint32(unsafe.Sizeof(zero)) {
		return nil, fmt.Errorf("%w: slot size %d, want %d", ErrRegionLayout, size, unsafe.Sizeof(zero))
	}
	capacity := hdr.capacity.RelaxedRead()
	if !validCapacity(capacity) {
		return nil, fmt.Errorf("%w: capacity %d is not a power of two", ErrRegionLayout, capacity)
	}
	return layRegion[T](mem, capacity)
}

func checkAlign[T any](mem []byte) error {
	var zero T
	align := uintptr(8)
	if a := unsafe.Alignof(zero); a > align {
		align = a
	}
	if addr := uintptr(unsafe.Pointer(&mem[0])); addr%align != 0 {
		return fmt.Errorf("%w: base %#x, need %d-byte alignment", ErrRegionMisaligned, addr, align)
	}
	return nil
}

func layRegion[T any](mem []byte, capacity uint64) (*Region[T], error) {
	need, err := regionSize[T](capacity)
	if err != nil {
		return nil, err
	}
	if len(mem) < need {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrRegionTooSmall, len(mem), need)
	}
	if err := checkAlign[T](mem); err != nil {
		return nil, err
	}

	base := unsafe.Pointer(&mem[0])
	return &Region[T]{
		hdr:      (*header)(base),
		slots:    unsafe.Slice((*T)(unsafe.Add(base, slotsOffset())), capacity),
		mask:     capacity - 1,
		capacity: capacity,
	}, nil
}

// Capacity returns the fixed ring capacity.
func (r *Region[T]) Capacity() uint64 {
	return r.capacity
}

// Len returns the number of published records not yet released by the
// consumer. It is a snapshot for observers; neither side may act on it.
// Tail is loaded first so the difference never underflows, and the result
// is clamped to the capacity because the head may move between the loads.
func (r *Region[T]) Len() uint64 {
	tail := r.hdr.tail.AcquireLoad()
	head := r.hdr.head.AcquireLoad()
	if n := head - tail; n < r.capacity {
		return n
	}
	return r.capacity
}

func (r *Region[T]) claim(flag *atomic.Bool, side string) {
	if flag.Swap(true) {
		panic("spscring: region already has a " + side)
	}
}
