package spscring

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aradilov/spscring/internal/futex"
	"github.com/aradilov/spscring/order"
)

// parkSlice bounds one futex wait so Park notices context cancellation.
const parkSlice = 10 * time.Millisecond

// Consumer is the only writer of a region's tail index. It owns the slots
// in [tail, head) for the head returned by its last Drain and must be used
// from one goroutine at a time.
type Consumer[T any] struct {
	// Optional padding to avoid false sharing with neighbouring objects
	_        [64]byte
	hdr      *header
	slots    []T
	mask     uint64
	capacity uint64
	tail     uint64 // last released tail
	observed uint64 // head seen by the last Drain
	_        [64]byte

	consumed   atomic.Uint64
	releases   atomic.Uint64
	emptyPolls atomic.Uint64
	sleeps     atomic.Uint64
}

// ConsumerStats is a snapshot of a consumer's counters.
type ConsumerStats struct {
	Consumed   uint64
	Releases   uint64
	EmptyPolls uint64
	Sleeps     uint64
}

// NewConsumer attaches the consumer side to r. It panics if r already has
// a consumer.
func NewConsumer[T any](r *Region[T]) *Consumer[T] {
	r.claim(&r.consumer, "consumer")
	tail := r.hdr.tail.RelaxedRead()
	return &Consumer[T]{
		hdr:      r.hdr,
		slots:    r.slots,
		mask:     r.mask,
		capacity: r.capacity,
		tail:     tail,
		observed: tail,
	}
}

// Drain acquire-loads the producer's head and returns the range of
// published records the consumer now owns. An empty range changes nothing,
// so Drain may be polled freely.
func (c *Consumer[T]) Drain() Range {
	head := c.hdr.head.AcquireLoad()
	if avail := head - c.tail; avail > c.capacity {
		panic(fmt.Sprintf("spscring: head %d is %d records past tail %d (capacity %d)", head, avail, c.tail, c.capacity))
	}
	c.observed = head
	return Range{Start: c.tail, End: head}
}

// At returns the slot of absolute index idx, which must lie in the range
// returned by the last Drain and not yet be released.
func (c *Consumer[T]) At(idx uint64) *T {
	if idx-c.tail >= c.observed-c.tail {
		panic(fmt.Sprintf("spscring: index %d outside owned range [%d, %d)", idx, c.tail, c.observed))
	}
	return &c.slots[idx&c.mask]
}

// ReleaseTo hands every slot below idx back to the producer with a release
// store of the tail. idx may not pass the head seen by the last Drain.
func (c *Consumer[T]) ReleaseTo(idx uint64) {
	n := idx - c.tail
	if n > c.observed-c.tail {
		panic(fmt.Sprintf("spscring: release to %d outside owned range [%d, %d]", idx, c.tail, c.observed))
	}
	if n == 0 {
		return
	}
	c.tail = idx
	c.hdr.tail.ReleaseStore(idx)

	c.consumed.Add(n)
	c.releases.Add(1)
}

// Release hands the next n owned slots back to the producer.
func (c *Consumer[T]) Release(n uint64) {
	c.ReleaseTo(c.tail + n)
}

// TryPop reads and releases the oldest record.
// Returns (zero, false) if the ring is empty.
func (c *Consumer[T]) TryPop() (T, bool) {
	if c.observed == c.tail {
		if c.Drain().Empty() {
			c.emptyPolls.Add(1)
			var zero T
			return zero, false
		}
	}
	v := c.slots[c.tail&c.mask]
	c.Release(1)
	return v, true
}

// PopBatch copies up to len(dst) records into dst, releases them with one
// tail store and returns how many were copied.
func (c *Consumer[T]) PopBatch(dst []T) int {
	avail := c.observed - c.tail
	if avail < uint64(len(dst)) {
		avail = c.Drain().Len()
	}
	n := uint64(len(dst))
	if avail < n {
		n = avail
	}
	if n == 0 {
		if len(dst) > 0 {
			c.emptyPolls.Add(1)
		}
		return 0
	}

	for i := uint64(0); i < n; i++ {
		dst[i] = c.slots[(c.tail+i)&c.mask]
	}
	c.Release(n)
	return int(n)
}

// PrepareSleep announces that the consumer is about to wait for the
// producer. It returns false, with the announcement withdrawn, if records
// arrived meanwhile. After a true result the caller sleeps and then calls
// FinishSleep.
func (c *Consumer[T]) PrepareSleep() bool {
	c.hdr.flags.ReleaseStore(flagNeedWakeup)
	order.FullFence()
	if c.hdr.head.AcquireLoad() != c.tail {
		c.FinishSleep()
		return false
	}
	return true
}

// FinishSleep withdraws the announcement made by PrepareSleep.
func (c *Consumer[T]) FinishSleep() {
	c.hdr.flags.RelaxedWrite(0)
}

// Park blocks until the producer publishes past the consumer's tail, ctx is
// done or timeout elapses (timeout <= 0 waits for ctx only). The producer
// must call Notify after publishing for Park to wake promptly.
func (c *Consumer[T]) Park(ctx context.Context, timeout time.Duration) error {
	seq := c.hdr.wake.AcquireLoad()
	if !c.PrepareSleep() {
		return nil
	}
	defer c.FinishSleep()
	c.sleeps.Add(1)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if c.hdr.head.AcquireLoad() != c.tail {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}

		wait := parkSlice
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return ErrTimeout
			}
			if left < wait {
				wait = left
			}
		}
		if err := futex.Wait(c.hdr.wake.UnsafeAddr(), seq, wait); err != nil && !errors.Is(err, futex.ErrTimeout) {
			return fmt.Errorf("park consumer: %w", err)
		}
		seq = c.hdr.wake.AcquireLoad()
	}
}

// Tail returns the last released tail index.
func (c *Consumer[T]) Tail() uint64 {
	return c.tail
}

// Capacity returns the fixed ring capacity.
func (c *Consumer[T]) Capacity() uint64 {
	return c.capacity
}

// Stats retrieves the current statistics of the consumer.
func (c *Consumer[T]) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:   c.consumed.Load(),
		Releases:   c.releases.Load(),
		EmptyPolls: c.emptyPolls.Load(),
		Sleeps:     c.sleeps.Load(),
	}
}
