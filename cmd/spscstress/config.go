package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

const (
	modeHeap = "heap"
	modeAnon = "anon"
	modeShm  = "shm"

	roleBoth     = "both"
	roleProducer = "producer"
	roleConsumer = "consumer"
)

var errConfig = errors.New("invalid configuration")

type config struct {
	capacity    uint64
	records     uint64
	batch       uint
	mode        string
	shmName     string
	role        string
	producerCPU int
	consumerCPU int
	park        bool
	timeout     time.Duration
}

func parseFlags(args []string, output io.Writer) (config, error) {
	var cfg config

	fs := flag.NewFlagSet("spscstress", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Uint64Var(&cfg.capacity, "capacity", 1024, "ring capacity in records, power of two")
	fs.Uint64Var(&cfg.records, "records", 1_000_000, "records to transfer")
	fs.UintVar(&cfg.batch, "batch", 32, "largest random publish batch")
	fs.StringVar(&cfg.mode, "mode", modeHeap, "region backing: heap, anon or shm")
	fs.StringVar(&cfg.shmName, "shm", "", "segment name under /dev/shm (mode shm)")
	fs.StringVar(&cfg.role, "role", roleBoth, "both, producer or consumer (the last two need -shm)")
	fs.IntVar(&cfg.producerCPU, "producer-cpu", -1, "pin the producer thread to this CPU")
	fs.IntVar(&cfg.consumerCPU, "consumer-cpu", -1, "pin the consumer thread to this CPU")
	fs.BoolVar(&cfg.park, "park", false, "consumer sleeps on a futex instead of spinning when empty")
	fs.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "abort the run after this long")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if cfg.role != roleBoth && cfg.mode == modeHeap {
		cfg.mode = modeShm
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.capacity == 0 || c.capacity&(c.capacity-1) != 0 {
		return fmt.Errorf("%w: capacity %d is not a power of two", errConfig, c.capacity)
	}
	if c.records == 0 {
		return fmt.Errorf("%w: records must be > 0", errConfig)
	}
	if c.batch == 0 || uint64(c.batch) > c.capacity {
		return fmt.Errorf("%w: batch %d must be in [1, capacity]", errConfig, c.batch)
	}
	switch c.mode {
	case modeHeap, modeAnon, modeShm:
	default:
		return fmt.Errorf("%w: unknown mode %q", errConfig, c.mode)
	}
	switch c.role {
	case roleBoth:
	case roleProducer, roleConsumer:
		if c.mode != modeShm {
			return fmt.Errorf("%w: role %s needs mode shm", errConfig, c.role)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", errConfig, c.role)
	}
	if c.mode == modeShm && c.shmName == "" {
		return fmt.Errorf("%w: mode shm needs -shm", errConfig)
	}
	if c.timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", errConfig)
	}
	return nil
}
