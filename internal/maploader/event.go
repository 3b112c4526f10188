package maploader

import "github.com/fieldstone/caselog/internal/domain"

// EventKind discriminates result events flowing from the worker to the sync
// loop.
type EventKind int

const (
	// EventCacheHit carries coordinates served from the geocode cache.
	EventCacheHit EventKind = iota
	// EventGeocoded carries coordinates freshly resolved by the service.
	EventGeocoded
	// EventSkipped marks a location that could not be resolved.
	EventSkipped
	// EventFinished is the terminal event of a batch, emitted exactly once.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventCacheHit:
		return "cache_hit"
	case EventGeocoded:
		return "geocoded"
	case EventSkipped:
		return "skipped"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is one worker result. Loc is unset for EventFinished; Lat/Lon are
// set for cache hits and geocoded results; Reason is set for skips.
type Event struct {
	Kind   EventKind
	Loc    domain.Location
	Lat    float64
	Lon    float64
	Reason string
}
