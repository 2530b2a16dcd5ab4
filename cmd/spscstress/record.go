package main

// record is the fixed-size payload moved through the ring. It holds no
// pointers so it can live in a shared segment.
type record struct {
	Seq     uint64
	Payload [6]uint64
	Sum     uint64
}

func (r *record) fill(seq uint64) {
	r.Seq = seq
	for i := range r.Payload {
		r.Payload[i] = seq*0x9e3779b97f4a7c15 + uint64(i)
	}
	r.Sum = r.checksum()
}

// checksum is FNV-1a over the words; a stale or torn slot fails it.
func (r *record) checksum() uint64 {
	sum := r.Seq ^ 0xcbf29ce484222325
	for _, w := range r.Payload {
		sum = (sum ^ w) * 0x100000001b3
	}
	return sum
}
