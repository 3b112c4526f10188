package maploader

import "sync/atomic"

// Lifecycle is the process liveness flag shared by the worker and the sync
// loop. Constructed once at startup, passed explicitly, flipped on shutdown.
// Cancellation is cooperative: the worker checks it before each location,
// the sync loop before each drain.
type Lifecycle struct {
	alive atomic.Bool
}

// NewLifecycle creates a live lifecycle.
func NewLifecycle() *Lifecycle {
	l := &Lifecycle{}
	l.alive.Store(true)
	return l
}

// Alive reports whether the application is still running.
func (l *Lifecycle) Alive() bool {
	return l.alive.Load()
}

// Shutdown flips the flag. In-flight geocode calls are not aborted; their
// results are simply never consumed.
func (l *Lifecycle) Shutdown() {
	l.alive.Store(false)
}
