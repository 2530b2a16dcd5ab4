package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fastrand"

	"github.com/aradilov/spscring"
	"github.com/aradilov/spscring/internal/affinity"
	"github.com/aradilov/spscring/shm"
)

// attachRetry is the poll interval while a consumer waits for the
// producer's segment to appear.
const attachRetry = 10 * time.Millisecond

func run(ctx context.Context, cfg config) (*report, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	rep := &report{Mode: cfg.mode, Role: cfg.role, Capacity: cfg.capacity, Records: cfg.records}
	start := time.Now()

	var err error
	switch cfg.role {
	case roleProducer:
		err = runProducer(ctx, cfg, rep)
	case roleConsumer:
		err = runConsumer(ctx, cfg, rep)
	default:
		err = runBoth(ctx, cfg, rep)
	}
	rep.finish(time.Since(start))
	return rep, err
}

// regions returns the producer's and the consumer's view of one ring.
func regions(cfg config) (w, r *spscring.Region[record], cleanup func(), err error) {
	if cfg.mode == modeHeap {
		rg := spscring.NewRegion[record](cfg.capacity)
		return rg, rg, func() {}, nil
	}

	size := spscring.RegionSize[record](cfg.capacity)
	var seg *shm.Segment
	if cfg.mode == modeAnon {
		seg, err = shm.Anonymous(size)
	} else {
		seg, err = shm.Create(cfg.shmName, size)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup = func() {
		if err := seg.Close(); err != nil {
			dropError("close segment", err)
		}
		if cfg.mode == modeShm {
			if err := shm.Unlink(cfg.shmName); err != nil {
				dropError("unlink segment", err)
			}
		}
	}

	if w, err = spscring.InitRegion[record](seg.Bytes(), cfg.capacity); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	if r, err = spscring.AttachRegion[record](seg.Bytes()); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return w, r, cleanup, nil
}

func runBoth(ctx context.Context, cfg config, rep *report) error {
	w, r, cleanup, err := regions(cfg)
	if err != nil {
		return fmt.Errorf("set up region: %w", err)
	}
	defer cleanup()

	p := spscring.NewProducer(w)
	c := spscring.NewConsumer(r)

	var (
		wg      sync.WaitGroup
		prodErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		prodErr = produce(ctx, cfg, p)
	}()
	consErr := consume(ctx, cfg, c, rep)
	wg.Wait()

	ps, cs := p.Stats(), c.Stats()
	rep.Producer, rep.Consumer = &ps, &cs
	return errors.Join(prodErr, consErr)
}

func runProducer(ctx context.Context, cfg config, rep *report) (err error) {
	seg, err := shm.Create(cfg.shmName, spscring.RegionSize[record](cfg.capacity))
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	defer seg.Close()
	// On success the consumer unlinks the name once attached. On failure it
	// may never attach, so the name must not outlive this run.
	defer func() {
		if err == nil {
			return
		}
		if uerr := shm.Unlink(cfg.shmName); uerr != nil && !errors.Is(uerr, shm.ErrNotExist) {
			dropError("unlink segment", uerr)
		}
	}()

	w, err := spscring.InitRegion[record](seg.Bytes(), cfg.capacity)
	if err != nil {
		return fmt.Errorf("init region: %w", err)
	}
	dropError("producer: segment "+cfg.shmName+" ready", nil)

	p := spscring.NewProducer(w)
	err = produce(ctx, cfg, p)
	ps := p.Stats()
	rep.Producer = &ps
	return err
}

func runConsumer(ctx context.Context, cfg config, rep *report) error {
	r, seg, err := attach(ctx, cfg.shmName)
	if err != nil {
		return err
	}
	defer seg.Close()
	// the producer only needed the name until we attached
	if err := shm.Unlink(cfg.shmName); err != nil {
		dropError("unlink segment", err)
	}
	if r.Capacity() != cfg.capacity {
		dropError(fmt.Sprintf("consumer: segment capacity %d overrides -capacity %d", r.Capacity(), cfg.capacity), nil)
		rep.Capacity = r.Capacity()
	}

	c := spscring.NewConsumer(r)
	err = consume(ctx, cfg, c, rep)
	cs := c.Stats()
	rep.Consumer = &cs
	return err
}

// attach waits for the producer to create and initialise the segment.
func attach(ctx context.Context, name string) (*spscring.Region[record], *shm.Segment, error) {
	for {
		seg, err := shm.Open(name)
		if err == nil {
			r, aerr := spscring.AttachRegion[record](seg.Bytes())
			if aerr == nil {
				return r, seg, nil
			}
			seg.Close()
			if !errors.Is(aerr, spscring.ErrRegionNotInitialized) {
				return nil, nil, fmt.Errorf("attach region: %w", aerr)
			}
		} else if !errors.Is(err, shm.ErrNotExist) {
			return nil, nil, fmt.Errorf("open segment: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("wait for segment %s: %w", name, ctx.Err())
		case <-time.After(attachRetry):
		}
	}
}

func produce(ctx context.Context, cfg config, p *spscring.Producer[record]) error {
	unpin, err := affinity.Pin(cfg.producerCPU)
	if err != nil {
		dropError("producer", err)
	} else {
		defer unpin()
	}

	b := spscring.DefaultBackoff
	attempt := 0
	for seq := uint64(0); seq < cfg.records; {
		want := uint64(fastrand.Uint32n(uint32(cfg.batch))) + 1
		if left := cfg.records - seq; want > left {
			want = left
		}

		free := p.Free()
		if free == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("producer stalled at record %d: %w", seq, err)
			}
			b.Pause(attempt)
			attempt++
			continue
		}
		attempt = 0
		if want > free {
			want = free
		}

		for i := uint64(0); i < want; i++ {
			p.Slot(i).fill(seq + i)
		}
		p.Publish(want)
		seq += want

		if cfg.park {
			if err := p.Notify(); err != nil {
				return err
			}
		}
	}
	return nil
}

func consume(ctx context.Context, cfg config, c *spscring.Consumer[record], rep *report) error {
	unpin, err := affinity.Pin(cfg.consumerCPU)
	if err != nil {
		dropError("consumer", err)
	} else {
		defer unpin()
	}

	b := spscring.DefaultBackoff
	attempt := 0
	next := uint64(0)
	for rep.Received < cfg.records {
		rng := c.Drain()
		if rng.Empty() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("consumer stalled at record %d: %w", rep.Received, err)
			}
			if cfg.park {
				if err := c.Park(ctx, 0); err != nil && !errors.Is(err, spscring.ErrTimeout) {
					return err
				}
				continue
			}
			b.Pause(attempt)
			attempt++
			continue
		}
		attempt = 0

		for i := rng.Start; i < rng.End; i++ {
			rec := c.At(i)
			if rec.Seq != next {
				rep.OutOfOrder++
			}
			if rec.Sum != rec.checksum() {
				rep.Corrupt++
			}
			next = rec.Seq + 1
			rep.Received++
		}
		c.ReleaseTo(rng.End)
	}
	return nil
}
