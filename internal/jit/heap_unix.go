//go:build linux || darwin

package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// UnixPort is the mmap-backed Port: RWX first, falling back to a
// dual W^X mapping of the same physical pages when the host refuses
// RWX (hardened kernels, Linux PaX, OpenBSD), grounded on
// original_source/src/rvjit/rvjit.c's rvjit_ctx_init.
type UnixPort struct {
	disableRWX bool
}

// NewUnixPort returns a Port. disableRWX forces the dual-mapping path
// even on hosts that would otherwise allow a single RWX mapping,
// mirroring the original's "rvjit_disable_rwx" escape hatch.
func NewUnixPort(disableRWX bool) *UnixPort {
	return &UnixPort{disableRWX: disableRWX}
}

func (p *UnixPort) Alloc(size int) (data, code []byte, err error) {
	if !p.disableRWX {
		rwx, errRWX := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
		if errRWX == nil {
			return rwx, rwx, nil
		}
	}
	return p.allocDualMapped(size)
}

// allocDualMapped backs two mappings with the same physical pages via
// memfd_create (Linux) so writes to data are visible through code
// without ever making a single mapping both writable and executable.
func (p *UnixPort) allocDualMapped(size int) (data, code []byte, err error) {
	fd, errFD := unix.MemfdCreate("rvvm-jit-heap", 0)
	if errFD != nil {
		return nil, nil, fmt.Errorf("jit: memfd_create: %w", errFD)
	}
	defer unix.Close(fd)
	if errTrunc := unix.Ftruncate(fd, int64(size)); errTrunc != nil {
		return nil, nil, fmt.Errorf("jit: ftruncate: %w", errTrunc)
	}
	rw, errRW := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if errRW != nil {
		return nil, nil, fmt.Errorf("jit: mmap rw: %w", errRW)
	}
	rx, errRX := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_EXEC, unix.MAP_SHARED)
	if errRX != nil {
		_ = unix.Munmap(rw)
		return nil, nil, fmt.Errorf("jit: mmap rx: %w", errRX)
	}
	return rw, rx, nil
}

func (p *UnixPort) Release(data, code []byte) {
	_ = unix.Munmap(data)
	if &code[0] != &data[0] {
		_ = unix.Munmap(code)
	}
}

// ReleasePhysicalBacking drops the physical pages behind used without
// unmapping, so the next FlushCache cycle starts cold without the cost
// of a fresh mmap.
func (p *UnixPort) ReleasePhysicalBacking(used []byte) {
	if len(used) == 0 {
		return
	}
	_ = unix.Madvise(used, unix.MADV_DONTNEED)
}

// BeginWrite/EndWrite are no-ops on every platform this port builds
// for; no per-thread write-protect toggle is performed, darwin
// included.
func (p *UnixPort) BeginWrite() {}
func (p *UnixPort) EndWrite()   {}
