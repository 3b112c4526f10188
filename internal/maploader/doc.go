// Package maploader drives the asynchronous map load cycle.
//
// # Pipeline
//
// One load cycle resolves every distinct offense location in the case log to
// map coordinates:
//
//	cases → unique (city, state) set → Worker → Queue → SyncLoop → Surface
//
// The Worker runs on its own goroutine. For each location it consults the
// durable geocode cache, falls back to the geocoding service on a miss, and
// emits one result event per location plus a terminal Finished event. Cache
// misses are throttled to honor the service's one-request-per-second policy;
// cache hits bypass the throttle.
//
// The SyncLoop is the single consumer. On a short fixed tick it drains the
// queue without blocking, places markers, and keeps the running counters and
// status line current. When it observes Finished it fits the viewport to the
// placed markers and settles the cycle.
//
// The Coordinator guarantees at most one active cycle: a StartLoad call
// while a cycle is running is a logged no-op. Cycle state moves
// Idle → Running → Finalizing → Idle.
//
// # Failure containment
//
// Every failure is contained at location granularity. A cache read error
// degrades to a miss, a cache write error skips caching, and any geocoding
// failure becomes a Skipped event; nothing aborts the batch and nothing in
// this package is fatal to the process.
package maploader
