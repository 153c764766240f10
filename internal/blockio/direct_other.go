//go:build !linux

package blockio

// directFlag is a documented no-op outside Linux: O_DIRECT has no
// portable equivalent, per spec.md §6.3's open-flag contract.
func directFlag() int { return 0 }
