package machine

// RAM is a lazily-allocated, page-backed physical memory window,
// grounded on rvgo/fast/memory.go's page-map Memory but stripped of its
// Keccak merkleization (a fault-proof witness concern, not in this
// module's domain per SPEC_FULL.md §8).
type RAM struct {
	begin uint64
	size  uint64

	pages map[uint64][]byte

	lastPageKey uint64
	lastPage    []byte
}

const (
	ramPageShift = 12
	ramPageSize  = 1 << ramPageShift
	ramPageMask  = ramPageSize - 1
)

// NewRAM creates a RAM window covering [begin, begin+size).
func NewRAM(begin, size uint64) *RAM {
	return &RAM{
		begin:       begin,
		size:        size,
		pages:       make(map[uint64][]byte),
		lastPageKey: ^uint64(0),
	}
}

func (r *RAM) contains(pa, n uint64) bool {
	if n == 0 {
		return pa >= r.begin && pa < r.begin+r.size
	}
	end := pa + n
	return pa >= r.begin && end > pa && end <= r.begin+r.size
}

func (r *RAM) pageFor(pa uint64, alloc bool) ([]byte, uint64, bool) {
	key := (pa - r.begin) >> ramPageShift
	if key == r.lastPageKey {
		return r.lastPage, key, true
	}
	p, ok := r.pages[key]
	if !ok {
		if !alloc {
			return nil, key, false
		}
		p = make([]byte, ramPageSize)
		r.pages[key] = p
	}
	r.lastPageKey = key
	r.lastPage = p
	return p, key, true
}

// ReadPhys implements mmu.Host / hart.Host: read len(buf) bytes at pa.
// Unallocated pages read as zero, matching a freshly-booted machine's
// untouched RAM.
func (r *RAM) ReadPhys(pa uint64, buf []byte) bool {
	if !r.contains(pa, uint64(len(buf))) {
		return false
	}
	off := (pa - r.begin) & ramPageMask
	page, _, ok := r.pageFor(pa, false)
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return true
	}
	copy(buf, page[off:off+uint64(len(buf))])
	return true
}

// WritePhys implements mmu.Host / hart.Host: write len(buf) bytes at pa.
func (r *RAM) WritePhys(pa uint64, buf []byte) bool {
	if !r.contains(pa, uint64(len(buf))) {
		return false
	}
	off := (pa - r.begin) & ramPageMask
	page, _, _ := r.pageFor(pa, true)
	copy(page[off:off+uint64(len(buf))], buf)
	return true
}

// HostPointer implements mmu.Host: a direct page-sized slice for the
// TLB fast path. Only RAM addresses qualify; MMIO ranges never do.
func (r *RAM) HostPointer(pa uint64) ([]byte, bool) {
	if !r.contains(pa, 0) {
		return nil, false
	}
	page, _, ok := r.pageFor(pa, true)
	if !ok {
		return nil, false
	}
	return page, true
}

// Begin and Size expose the RAM window's bounds.
func (r *RAM) Begin() uint64 { return r.begin }
func (r *RAM) Size() uint64  { return r.size }

// PageCount reports how many 4 KiB pages have been touched, for
// diagnostics/tests.
func (r *RAM) PageCount() int { return len(r.pages) }
