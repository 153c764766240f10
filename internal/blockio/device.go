// Package blockio implements the abstract block-device port spec.md §6
// names for device models only ("The core itself uses none of these"):
// open/close, positioned read/write with explicit offset, seek/tell for
// cursor mode, trim, truncate, fallocate, fsync.
package blockio

import "io"

// OpenFlags mirrors spec.md §6's "Open flags: read-write, create,
// exclusive, truncate, direct (bypass page cache), sync (disable
// writeback)".
type OpenFlags uint32

const (
	ReadWrite OpenFlags = 1 << iota
	Create
	Exclusive
	Truncate
	Direct // best-effort O_DIRECT; no-op where the host doesn't support it
	Sync   // O_SYNC: disable writeback caching
)

// Device is the block-device port. ReadAt/WriteAt are thread-safe
// positional operations that must not consult or mutate the cursor,
// per spec.md §6; Seek operates the separate cursor-mode position.
type Device interface {
	io.Closer

	ReadAt(buf []byte, off int64) (int, error)
	WriteAt(buf []byte, off int64) (int, error)

	Seek(off int64, whence int) (int64, error)

	// Trim punch-holes the byte range [off, off+length), per spec.md
	// §6; best-effort on filesystems without hole-punching support.
	Trim(off, length int64) error
	Truncate(size int64) error
	Fallocate(off, length int64) error
	Sync() error
}
