package jit

import "unsafe"

// unsafePtr returns the address of b's backing array, used only to
// compute the absolute entry-point address callers outside this
// package can jump to (or, in this core, record for logging — actual
// control transfer into compiled code is the Backend's job).
func unsafePtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
