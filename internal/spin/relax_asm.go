//go:build (amd64 || arm64) && !noasm

// Package spin holds the CPU hint used inside busy-wait loops.
package spin

// Relax tells the CPU the caller is spinning (PAUSE on amd64, YIELD on
// arm64) so a sibling hyper-thread can make progress.
//
//go:noescape
func Relax()
