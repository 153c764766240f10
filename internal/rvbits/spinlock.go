package rvbits

// Spinlock is a single-word test-and-set mutex. No fairness guarantee;
// it is meant for the short, uncontended critical sections inside the
// core — JIT block-registry mutation, not general-purpose locking.
type Spinlock struct {
	locked AtomicBool
}

// Lock busy-swaps 0<->1 under acquire ordering until it wins.
func (s *Spinlock) Lock() {
	for s.locked.TestAndSet(Acquire) {
	}
}

// Unlock stores 0 under release ordering.
func (s *Spinlock) Unlock() {
	s.locked.Store(false, Release)
}
