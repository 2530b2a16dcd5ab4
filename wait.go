package spscring

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/valyala/fastrand"

	"github.com/aradilov/spscring/internal/spin"
)

// maxSleepShift caps the exponential sleep at about one second.
const maxSleepShift = 20

// Backoff is the retry policy of PushContext and PopContext: spin with a CPU
// hint, then yield the processor, then sleep for an exponentially growing,
// jittered duration.
type Backoff struct {
	Spins    int           // attempts that only issue a spin hint
	Yields   int           // further attempts that call runtime.Gosched
	MaxSleep time.Duration // cap of the sleep phase; 0 means about 1s
}

// DefaultBackoff suits a consumer and producer on different cores.
var DefaultBackoff = Backoff{Spins: 64, Yields: 64, MaxSleep: time.Millisecond}

// Pause waits once according to the policy. attempt counts from 0.
func (b Backoff) Pause(attempt int) {
	switch {
	case attempt < b.Spins:
		spin.Relax()
	case attempt < b.Spins+b.Yields:
		runtime.Gosched()
	default:
		shift := attempt - b.Spins - b.Yields
		if shift > maxSleepShift {
			shift = maxSleepShift
		}
		d := time.Microsecond << uint(shift)
		if b.MaxSleep > 0 && d > b.MaxSleep {
			d = b.MaxSleep
		}
		half := d / 2
		time.Sleep(half + time.Duration(fastrand.Uint32n(uint32(half)+1)))
	}
}

// PushContext pushes v, retrying with b while the ring is full.
// Returns ErrQueueIsFull wrapping ctx.Err() if ctx ends first.
func (p *Producer[T]) PushContext(ctx context.Context, v T, b Backoff) error {
	for attempt := 0; ; attempt++ {
		if p.TryPush(v) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrQueueIsFull, ctx.Err())
		default:
		}
		b.Pause(attempt)
	}
}

// PopContext pops one record, retrying with b while the ring is empty.
// Returns ErrQueueIsEmpty wrapping ctx.Err() if ctx ends first.
func (c *Consumer[T]) PopContext(ctx context.Context, b Backoff) (T, error) {
	for attempt := 0; ; attempt++ {
		if v, ok := c.TryPop(); ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("%w: %w", ErrQueueIsEmpty, ctx.Err())
		default:
		}
		b.Pause(attempt)
	}
}
