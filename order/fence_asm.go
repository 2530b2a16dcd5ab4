//go:build (amd64 || arm64) && !noasm

package order

// FullFence orders every memory operation before it against every memory
// operation after it, for all contexts. Use it only where one
// release/acquire pair cannot express the ordering, e.g. a store to one
// cell followed by a load from another.
//
//go:noescape
func FullFence()
