//go:build !amd64 && !arm64

package jit

// flushIcache has no portable non-cgo equivalent to the toolchain's
// __builtin___clear_cache on this architecture, so it is a best-effort
// no-op; ports targeting these platforms should disable the JIT and
// fall back to pure interpretation, per spec.md §9.
func flushIcache(addr uintptr, size int) {}
