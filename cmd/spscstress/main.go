// Command spscstress moves records through an spscring region and checks
// that every record arrives exactly once, in order and intact. Producer and
// consumer run as two goroutines, or as two processes sharing a named
// segment:
//
//	spscstress -role producer -shm ring0 &
//	spscstress -role consumer -shm ring0
//
// The run is summarised as one JSON object on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	log.SetPrefix("spscstress: ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		dropError("config", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := run(ctx, cfg)
	if err != nil {
		dropError("run", err)
	}
	if werr := rep.write(os.Stdout); werr != nil {
		dropError("write report", werr)
	}
	if err != nil || !rep.OK {
		os.Exit(1)
	}
}
