package spscring

import (
	"fmt"
	"sync/atomic"

	"github.com/aradilov/spscring/internal/futex"
	"github.com/aradilov/spscring/order"
)

// Producer is the only writer of a region's head index. It owns the slots
// in [head, tail+capacity) and must be used from one goroutine at a time.
type Producer[T any] struct {
	// Optional padding to avoid false sharing with neighbouring objects
	_          [64]byte
	hdr        *header
	slots      []T
	mask       uint64
	capacity   uint64
	head       uint64 // last published head
	cachedTail uint64 // tail seen by the last reclamation check
	_          [64]byte

	published atomic.Uint64
	batches   atomic.Uint64
	fullPolls atomic.Uint64
	wakeups   atomic.Uint64
}

// ProducerStats is a snapshot of a producer's counters.
type ProducerStats struct {
	Published uint64
	Batches   uint64
	FullPolls uint64
	Wakeups   uint64
}

// NewProducer attaches the producer side to r. It panics if r already has
// a producer.
func NewProducer[T any](r *Region[T]) *Producer[T] {
	r.claim(&r.producer, "producer")
	return &Producer[T]{
		hdr:        r.hdr,
		slots:      r.slots,
		mask:       r.mask,
		capacity:   r.capacity,
		head:       r.hdr.head.RelaxedRead(),
		cachedTail: r.hdr.tail.AcquireLoad(),
	}
}

// Free acquire-loads the consumer's tail and returns how many slots the
// producer may fill before the ring is full.
func (p *Producer[T]) Free() uint64 {
	tail := p.hdr.tail.AcquireLoad()
	if used := p.head - tail; used > p.capacity {
		panic(fmt.Sprintf("spscring: head %d is %d records past tail %d (capacity %d)", p.head, used, tail, p.capacity))
	}
	p.cachedTail = tail
	return p.capacity - (p.head - tail)
}

// owned is Free without touching the shared tail.
func (p *Producer[T]) owned() uint64 {
	return p.capacity - (p.head - p.cachedTail)
}

// Slot returns the i-th unpublished slot after the head. The slot may be
// written with ordinary stores until Publish hands it to the consumer.
func (p *Producer[T]) Slot(i uint64) *T {
	if i >= p.owned() && i >= p.Free() {
		panic(fmt.Sprintf("spscring: producer slot %d outside owned window of %d", i, p.owned()))
	}
	return &p.slots[(p.head+i)&p.mask]
}

// Publish hands the next n slots to the consumer with a single release
// store of the head.
func (p *Producer[T]) Publish(n uint64) {
	if n == 0 {
		return
	}
	if n > p.owned() && n > p.Free() {
		panic(fmt.Sprintf("spscring: publish of %d records exceeds owned window of %d", n, p.owned()))
	}
	p.head += n
	p.hdr.head.ReleaseStore(p.head)

	p.published.Add(n)
	p.batches.Add(1)
}

// TryPush writes v into the next slot and publishes it.
// Returns false if the ring is full.
func (p *Producer[T]) TryPush(v T) bool {
	if p.owned() == 0 && p.Free() == 0 {
		p.fullPolls.Add(1)
		return false
	}
	p.slots[p.head&p.mask] = v
	p.Publish(1)
	return true
}

// PushBatch writes as many leading elements of vs as fit and publishes them
// together. It returns the number written.
func (p *Producer[T]) PushBatch(vs []T) int {
	n := uint64(len(vs))
	if free := p.owned(); free < n {
		if free = p.Free(); free < n {
			n = free
		}
	}
	if n == 0 {
		if len(vs) > 0 {
			p.fullPolls.Add(1)
		}
		return 0
	}

	for i := uint64(0); i < n; i++ {
		p.slots[(p.head+i)&p.mask] = vs[i]
	}
	p.Publish(n)
	return int(n)
}

// NeedsWakeup reports whether the consumer announced it is about to sleep.
// Call it after Publish: the fence orders the head store before the flag
// load, pairing with the fence in Consumer.PrepareSleep.
func (p *Producer[T]) NeedsWakeup() bool {
	order.FullFence()
	return p.hdr.flags.RelaxedRead()&flagNeedWakeup != 0
}

// Notify wakes a consumer parked in Consumer.Park if it asked for it.
func (p *Producer[T]) Notify() error {
	if !p.NeedsWakeup() {
		return nil
	}
	p.hdr.wake.ReleaseStore(p.hdr.wake.RelaxedRead() + 1)
	p.wakeups.Add(1)
	if _, err := futex.Wake(p.hdr.wake.UnsafeAddr(), 1); err != nil {
		return fmt.Errorf("wake consumer: %w", err)
	}
	return nil
}

// Head returns the last published head index.
func (p *Producer[T]) Head() uint64 {
	return p.head
}

// Capacity returns the fixed ring capacity.
func (p *Producer[T]) Capacity() uint64 {
	return p.capacity
}

// Stats retrieves the current statistics of the producer.
func (p *Producer[T]) Stats() ProducerStats {
	return ProducerStats{
		Published: p.published.Load(),
		Batches:   p.batches.Load(),
		FullPolls: p.fullPolls.Load(),
		Wakeups:   p.wakeups.Load(),
	}
}
