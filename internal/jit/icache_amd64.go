//go:build amd64

package jit

// flushIcache is a no-op on x86: the instruction cache is coherent with
// the data cache, per spec.md §4.7.
func flushIcache(addr uintptr, size int) {}
