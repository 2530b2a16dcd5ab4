package spscring

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Basic sanity: sequential push/pop with ints.
func TestConsumerSequential(t *testing.T) {
	const (
		capacity = 1024
		N        = 100_000
	)

	r := NewRegion[int](capacity)
	p := NewProducer(r)
	c := NewConsumer(r)

	for i := 0; i < N; i++ {
		if !p.TryPush(i) {
			t.Fatalf("push failed at %d (ring unexpectedly full)", i)
		}
		v, ok := c.TryPop()
		if !ok {
			t.Fatalf("pop failed at %d (ring unexpectedly empty)", i)
		}
		if v != i {
			t.Fatalf("expected %d, got %d (FIFO violated)", i, v)
		}
	}

	// Now ring must be empty
	if v, ok := c.TryPop(); ok {
		t.Fatalf("expected empty ring at the end, got value=%v", v)
	}
	if s := c.Stats(); s.Consumed != N || s.EmptyPolls != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestConsumerAtOutsideRangePanics(t *testing.T) {
	r := NewRegion[int](8)
	p := NewProducer(r)
	c := NewConsumer(r)

	p.PushBatch([]int{1, 2, 3})
	expectPanic(t, "At before Drain", func() { c.At(0) })

	rng := c.Drain()
	_ = c.At(rng.Start)
	_ = c.At(rng.End - 1)
	expectPanic(t, "At(End)", func() { c.At(rng.End) })

	c.Release(1)
	expectPanic(t, "At of released index", func() { c.At(0) })
	expectPanic(t, "release past head", func() { c.ReleaseTo(rng.End + 1) })
	expectPanic(t, "release backwards", func() { c.ReleaseTo(0) })
}

func TestConsumerPartialRelease(t *testing.T) {
	r := NewRegion[int](4)
	p := NewProducer(r)
	c := NewConsumer(r)

	p.PushBatch([]int{10, 20, 30, 40})
	rng := c.Drain()
	c.Release(1)
	if free := p.Free(); free != 1 {
		t.Fatalf("free after releasing one = %d, want 1", free)
	}
	if v := *c.At(rng.Start + 1); v != 20 {
		t.Fatalf("still-owned slot = %d, want 20", v)
	}

	dst := make([]int, 8)
	if n := c.PopBatch(dst); n != 3 || dst[0] != 20 || dst[2] != 40 {
		t.Fatalf("PopBatch = %d %v", n, dst[:n])
	}
	if c.Tail() != 4 || p.Free() != 4 {
		t.Fatalf("tail=%d free=%d after full release", c.Tail(), p.Free())
	}
}

func TestConsumerPrepareSleepSeesPendingRecords(t *testing.T) {
	r := NewRegion[int](4)
	p := NewProducer(r)
	c := NewConsumer(r)

	p.TryPush(1)
	if c.PrepareSleep() {
		t.Fatal("PrepareSleep must refuse while records are pending")
	}
	if p.NeedsWakeup() {
		t.Fatal("refused sleep must not leave the flag set")
	}
}

func TestConsumerParkReturnsOnPendingRecords(t *testing.T) {
	r := NewRegion[int](4)
	p := NewProducer(r)
	c := NewConsumer(r)

	p.TryPush(1)
	if err := c.Park(context.Background(), time.Second); err != nil {
		t.Fatalf("park with pending records: %v", err)
	}
	if c.Stats().Sleeps != 0 {
		t.Fatal("park must not sleep when records are pending")
	}
}

func TestConsumerParkTimeout(t *testing.T) {
	r := NewRegion[int](4)
	_ = NewProducer(r)
	c := NewConsumer(r)

	start := time.Now()
	err := c.Park(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatalf("park returned after %v", time.Since(start))
	}
	if c.Stats().Sleeps != 1 {
		t.Fatalf("sleeps = %d, want 1", c.Stats().Sleeps)
	}
}

func TestConsumerParkContextCancel(t *testing.T) {
	r := NewRegion[int](4)
	_ = NewProducer(r)
	c := NewConsumer(r)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	err := c.Park(ctx, 0)
	if !errors.Is(err, ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrTimeout wrapping DeadlineExceeded, got %v", err)
	}
}

func TestConsumerParkWokenByNotify(t *testing.T) {
	r := NewRegion[int](4)
	p := NewProducer(r)
	c := NewConsumer(r)

	done := make(chan error, 1)
	go func() {
		done <- c.Park(context.Background(), 5*time.Second)
	}()

	// wait for the consumer to announce its sleep
	deadline := time.Now().Add(2 * time.Second)
	for !p.NeedsWakeup() {
		if time.Now().After(deadline) {
			t.Fatal("consumer never announced sleep")
		}
		time.Sleep(time.Millisecond)
	}

	p.TryPush(7)
	if err := p.Notify(); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("park: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("park did not return after notify")
	}
	if v, ok := c.TryPop(); !ok || v != 7 {
		t.Fatalf("pop after park = %d,%v", v, ok)
	}
}
