package domain

import (
	"fmt"
	"strings"
)

// Location is a normalized (city, state) pair. City keeps its original
// casing for display; State is uppercased.
type Location struct {
	City  string
	State string
}

// LocationKey is the canonical, case-folded "city|state" form used for cache
// rows, marker handles, and case grouping.
type LocationKey string

// NewLocation trims and normalizes a city/state pair. ok is false when either
// field is empty after trimming.
func NewLocation(city, state string) (Location, bool) {
	city = strings.TrimSpace(city)
	state = strings.ToUpper(strings.TrimSpace(state))
	if city == "" || state == "" {
		return Location{}, false
	}
	return Location{City: city, State: state}, true
}

// Key returns the canonical cache/grouping key. The whole key is case-folded
// so spellings differing only in case resolve to the same cache row.
func (l Location) Key() LocationKey {
	return LocationKey(strings.ToLower(l.City) + "|" + l.State)
}

// Query returns the composite query string sent to the geocoding service.
func (l Location) Query() string {
	return fmt.Sprintf("%s, %s, USA", l.City, l.State)
}

func (l Location) String() string {
	return l.City + ", " + l.State
}
