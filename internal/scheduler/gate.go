package scheduler

import "sync/atomic"

// Gate is the single-flight guard: at most one submission may be
// outstanding at a time. Acquisition is an atomic compare-and-swap;
// Release must run on every exit path of the guarded work.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire attempts to take the gate. It reports false when a submission
// is already in flight.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the gate. Safe to call when not held.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// Held reports whether a submission is currently in flight.
func (g *Gate) Held() bool {
	return g.busy.Load()
}
