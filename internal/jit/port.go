package jit

// Port is the small platform abstraction spec.md §9's design notes call
// for: everything OS/arch-specific the heap needs, so internal/jit
// itself stays free of build tags and syscalls.
type Port interface {
	// Alloc returns a writable view and an executable view of size
	// bytes of freshly mapped memory backed by the same physical
	// pages. On platforms that allow it, both views point at one RWX
	// mapping (data and code are the same slice); otherwise they are
	// two aliased mappings, per spec.md §4.7's "Heap initialization".
	Alloc(size int) (data, code []byte, err error)
	// Release unmaps both views.
	Release(data, code []byte)
	// ReleasePhysicalBacking drops the physical pages backing used,
	// keeping the virtual mapping in place, per spec.md §4.7's
	// flush_cache.
	ReleasePhysicalBacking(used []byte)
	// BeginWrite/EndWrite scope a write to the heap on platforms that
	// require per-thread toggling of write-vs-execute (Apple Silicon's
	// pthread_jit_write_protect). On every other platform these are
	// no-ops. EndWrite must run on every exit path, including panics —
	// callers use defer.
	BeginWrite()
	EndWrite()
}
