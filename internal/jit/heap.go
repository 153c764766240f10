// Package jit implements the code-cache protocol for an optional
// block-level dynamic binary translator, per spec.md §4.7. It owns the
// RWX/dual-mapped code heap, the block and link registries, and the
// dirty/jited page bit matrices; it does not generate machine code —
// that is the Backend port's job, left unimplemented per spec.md §1's
// Non-goal on host-specific JIT codegen backends.
package jit

import (
	"fmt"
	"sync"

	"github.com/ninja-bond/RVVM/internal/rvbits"
)

const (
	pageShift    = 12
	pageSize     = 1 << pageShift
	flushThreshold = 64 * 1024
)

// Backend is the host-specific codegen port spec.md §1 and §9 place out
// of scope for this module; the heap only needs to know how to emit
// raw bytes for a compiled block and how to patch a jump displacement.
type Backend interface {
	// EmitBlockSize returns how many bytes the pending block being
	// finalized will occupy once copied into the heap.
	EmitBlockSize(emit []byte) int
	// PatchJump rewrites the jump displacement at patchSite (an address
	// within the heap's executable mapping) to target.
	PatchJump(patchSite, target uintptr)
}

// pageBits addresses spec.md §3's two parallel bit matrices, indexed by
// (addr>>17, addr>>12&31) of a physical address.
type pageBits struct {
	rows [1 << 15]rvbits.AtomicU32 // addr>>17 selects the row; addr>>12&31 selects the bit within it
}

// rowCol takes a physical page number (address >> 12), so the split
// above becomes (physPage>>5, physPage&31). Rows cover the first 4 GiB
// of physical address space; higher pages wrap onto the same rows.
func rowCol(physPage uint64) (row uint64, bit uint) {
	return (physPage >> 5) & (1<<15 - 1), uint(physPage) & 31
}

func (p *pageBits) test(physPage uint64) bool {
	row, bit := rowCol(physPage)
	return p.rows[row].Load(rvbits.Relaxed)&(1<<bit) != 0
}

func (p *pageBits) set(physPage uint64) {
	row, bit := rowCol(physPage)
	p.rows[row].Or(1<<bit, rvbits.Relaxed)
}

func (p *pageBits) clear(physPage uint64) {
	row, bit := rowCol(physPage)
	p.rows[row].And(^uint32(1<<bit), rvbits.Relaxed)
}

// testAndClear atomically clears the bit and reports its previous
// value — the RMW that spec.md §5 calls out as the happens-before pair
// with mark_dirty_mem's atomic set.
func (p *pageBits) testAndClear(physPage uint64) bool {
	row, bit := rowCol(physPage)
	old := p.rows[row].And(^uint32(1<<bit), rvbits.Relaxed)
	return old&(1<<bit) != 0
}

// linkSite is one pending patch site awaiting a not-yet-compiled
// target block.
type linkSite struct {
	addr uintptr
}

// pendingLink is one deferred link recorded by EmitLink against the
// block currently being assembled: a target phys PC and the offset
// within the emit buffer where the backend wrote the (yet-unresolved)
// jump, per spec.md §9's "vector of patch-site addresses" note — the
// offset becomes an absolute site address only once BlockFinalize
// knows where in the heap this block landed.
type pendingLink struct {
	target     uint64
	siteOffset int
}

// Heap is the JIT code cache: spec.md §3's "JIT code heap".
type Heap struct {
	port Port

	data []byte // writable view
	code []byte // executable view; identical bytes, possibly a distinct mapping
	size int
	curr int

	lock rvbits.Spinlock

	// blocks maps phys pc -> entry point within code. Its fast-path
	// reads (BlockLookup's non-dirty case) must stay lock-free per
	// spec.md §5, so it is a sync.Map rather than a plain map guarded
	// by h.lock; writers (BlockFinalize, evictPage, FlushCache) still
	// take h.lock to keep the block/link/bit-matrix updates atomic as
	// a group.
	blocks sync.Map
	links  map[uint64][]linkSite // target phys pc -> pending patch sites

	jited pageBits
	dirty pageBits

	emit     []byte // current block's emit buffer
	emitLink []pendingLink

	backend Backend
}

// New allocates a code heap of size bytes via port (the platform-
// specific RWX/dual-map allocator) and returns a ready Heap, or an
// error on allocation failure — surfaced as a boot failure per
// spec.md §7, with the caller expected to proceed interpreter-only.
func New(port Port, size int, backend Backend) (*Heap, error) {
	data, code, err := port.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("jit: failed to allocate code heap: %w", err)
	}
	h := &Heap{
		port:    port,
		data:    data,
		code:    code,
		size:    size,
		links:   make(map[uint64][]linkSite),
		backend: backend,
	}
	h.BlockInit()
	return h, nil
}

// Release tears the heap down, invalidating every cached entry point.
// Called when the owning machine shuts down, per spec.md §3's
// lifecycle note.
func (h *Heap) Release() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.port.Release(h.data, h.code)
	h.blocks = sync.Map{}
	h.links = nil
}

// BlockInit resets the per-block emit buffer and link list, per
// spec.md §4.7.
func (h *Heap) BlockInit() {
	h.emit = h.emit[:0]
	h.emitLink = h.emitLink[:0]
}

// Emit appends bytes to the current block's emit buffer and returns
// the offset within that buffer where b was written, so the backend
// can pass the site of a not-yet-resolved jump to EmitLink.
func (h *Heap) Emit(b []byte) (offset int) {
	offset = len(h.emit)
	h.emit = append(h.emit, b...)
	return offset
}

// EmitLink records that the jump the backend wrote at siteOffset (an
// offset returned by Emit into the current block's emit buffer) needs
// patching once targetPhysPC is compiled; the site only becomes an
// absolute address once BlockFinalize knows where this block landed in
// the heap.
func (h *Heap) EmitLink(targetPhysPC uint64, siteOffset int) {
	h.emitLink = append(h.emitLink, pendingLink{target: targetPhysPC, siteOffset: siteOffset})
}

// ErrOutOfSpace is returned by BlockFinalize when the heap is full;
// callers must invoke FlushCache and retry compiling the block.
var ErrOutOfSpace = fmt.Errorf("jit: code heap out of space")

// BlockFinalize implements spec.md §4.7's block_finalize: it copies the
// emit buffer into the heap, publishes the block, resolves this
// block's own deferred links against the link registry, patches any
// sites that were waiting for this block as a target, and flushes the
// icache.
func (h *Heap) BlockFinalize(physPC uint64) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	size := len(h.emit)
	if h.curr+size > h.size {
		return ErrOutOfSpace
	}
	base := h.curr
	func() {
		h.port.BeginWrite()
		defer h.port.EndWrite()
		copy(h.data[base:base+size], h.emit)
	}()
	entry := uintptr(base) + h.codeBaseAddr()
	h.blocks.Store(physPC, entry)
	h.curr += size

	for _, pl := range h.emitLink {
		siteAddr := entry + uintptr(pl.siteOffset)
		h.links[pl.target] = append(h.links[pl.target], linkSite{addr: siteAddr})
	}

	if waiters, ok := h.links[physPC]; ok {
		for _, site := range waiters {
			h.backend.PatchJump(site.addr, entry)
			flushIcache(h.codePtr(site.addr), maxPatchWidth)
		}
		delete(h.links, physPC)
	}

	h.jited.set(physPC >> pageShift)
	flushIcache(h.codePtr(entry), size)
	return nil
}

const maxPatchWidth = 16

func (h *Heap) codeBaseAddr() uintptr {
	if len(h.code) == 0 {
		return 0
	}
	return uintptr(unsafePtr(h.code))
}

func (h *Heap) codePtr(addr uintptr) uintptr { return addr }

// BlockLookup implements spec.md §4.7's block_lookup, including the
// dirty-page eviction path. The non-dirty fast path never takes
// h.lock: it reads the jited/dirty bit matrices and h.blocks (a
// sync.Map) with atomic loads only, per spec.md §5's lock-free lookup
// requirement; the spinlock is reserved for BlockFinalize, evictPage,
// and FlushCache.
func (h *Heap) BlockLookup(physPC uint64) uintptr {
	page := physPC >> pageShift
	if h.dirty.test(page) {
		h.lock.Lock()
		if h.dirty.testAndClear(page) {
			h.evictPage(page)
		}
		h.lock.Unlock()
		return 0
	}
	entry, _ := h.blocks.Load(physPC)
	addr, _ := entry.(uintptr)
	return addr
}

// evictPage removes every block and pending link whose phys PC falls
// in page, per spec.md §4.7. Caller holds h.lock.
func (h *Heap) evictPage(page uint64) {
	h.blocks.Range(func(key, _ any) bool {
		pc := key.(uint64)
		if pc>>pageShift == page {
			h.blocks.Delete(pc)
		}
		return true
	})
	for target := range h.links {
		if target>>pageShift == page {
			delete(h.links, target) // freeing the slice is implicit in Go's GC
		}
	}
	h.jited.clear(page)
}

// MarkDirtyMem implements spec.md §4.7's mark_dirty_mem: for each 4KiB
// page touched by [addr, addr+size), atomically test the jited bit and,
// if set, set dirty and clear jited.
func (h *Heap) MarkDirtyMem(addr, size uint64) {
	start := addr >> pageShift
	end := (addr + size - 1) >> pageShift
	for page := start; page <= end; page++ {
		if h.jited.testAndClear(page) {
			h.dirty.set(page)
		}
	}
}

// FlushCache implements spec.md §4.7's flush_cache: idempotent, and
// releases the heap's physical backing once more than flushThreshold
// bytes have been used.
func (h *Heap) FlushCache() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.curr > flushThreshold {
		h.port.ReleasePhysicalBacking(h.data[:h.curr])
	}
	h.blocks = sync.Map{}
	h.links = make(map[uint64][]linkSite)
	h.curr = 0
	h.jited = pageBits{}
	h.dirty = pageBits{}
	h.BlockInit()
}
