package main

import (
	"io"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/aradilov/spscring"
)

type report struct {
	Mode          string                  `json:"mode"`
	Role          string                  `json:"role"`
	Capacity      uint64                  `json:"capacity"`
	Records       uint64                  `json:"records"`
	Received      uint64                  `json:"received"`
	OutOfOrder    uint64                  `json:"out_of_order"`
	Corrupt       uint64                  `json:"corrupt"`
	ElapsedNs     int64                   `json:"elapsed_ns"`
	RecordsPerSec float64                 `json:"records_per_sec"`
	Producer      *spscring.ProducerStats `json:"producer,omitempty"`
	Consumer      *spscring.ConsumerStats `json:"consumer,omitempty"`
	OK            bool                    `json:"ok"`
}

func (r *report) finish(elapsed time.Duration) {
	r.ElapsedNs = elapsed.Nanoseconds()
	moved := r.Received
	if r.Role == roleProducer && r.Producer != nil {
		moved = r.Producer.Published
	}
	if elapsed > 0 {
		r.RecordsPerSec = float64(moved) / elapsed.Seconds()
	}
	switch r.Role {
	case roleProducer:
		r.OK = r.Producer != nil && r.Producer.Published == r.Records
	default:
		r.OK = r.Received == r.Records && r.OutOfOrder == 0 && r.Corrupt == 0
	}
}

func (r *report) write(w io.Writer) error {
	b, err := sonnet.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
