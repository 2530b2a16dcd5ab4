//go:build !(amd64 || arm64) || noasm

// Package spin holds the CPU hint used inside busy-wait loops.
package spin

// Relax is a no-op on targets without a spin-wait hint.
func Relax() {}
