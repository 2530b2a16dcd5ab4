package spscring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBackoffPhases(t *testing.T) {
	b := Backoff{Spins: 2, Yields: 2, MaxSleep: 200 * time.Microsecond}

	start := time.Now()
	for attempt := 0; attempt < 4; attempt++ {
		b.Pause(attempt)
	}
	if d := time.Since(start); d > 50*time.Millisecond {
		t.Fatalf("spin/yield phases took %v", d)
	}

	// sleeps are capped by MaxSleep
	start = time.Now()
	for attempt := 4; attempt < 30; attempt++ {
		b.Pause(attempt)
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("26 capped sleeps took %v", d)
	}
}

func TestPushContextTimesOutWhenFull(t *testing.T) {
	r := NewRegion[int](2)
	p := NewProducer(r)
	p.TryPush(1)
	p.TryPush(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.PushContext(ctx, 3, DefaultBackoff)
	if !errors.Is(err, ErrQueueIsFull) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrQueueIsFull wrapping DeadlineExceeded, got %v", err)
	}
}

func TestPopContextTimesOutWhenEmpty(t *testing.T) {
	r := NewRegion[int](2)
	c := NewConsumer(r)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.PopContext(ctx, DefaultBackoff)
	if !errors.Is(err, ErrQueueIsEmpty) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrQueueIsEmpty wrapping DeadlineExceeded, got %v", err)
	}
}

func TestPushPopContextConcurrent(t *testing.T) {
	const N = 20_000

	r := NewRegion[int](16)
	p := NewProducer(r)
	c := NewConsumer(r)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < N; i++ {
			if err := p.PushContext(ctx, i, DefaultBackoff); err != nil {
				t.Errorf("push %d: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < N; i++ {
		v, err := c.PopContext(ctx, DefaultBackoff)
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if v != i {
			t.Fatalf("expected %d, got %d (FIFO violated)", i, v)
		}
	}
	wg.Wait()
}
