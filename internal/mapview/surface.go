// Package mapview models the map rendering surface the sync loop draws on.
//
// The Surface interface mirrors what a map widget offers: place markers,
// clear them, fit the viewport to the placed set, or jump to an explicit
// viewport. HeadlessSurface is the in-process implementation used by the CLI
// and by tests; a GUI embedding would provide its own.
package mapview

import "github.com/fieldstone/caselog/internal/domain"

// Marker is one placed map marker.
type Marker struct {
	Key   domain.LocationKey
	City  string
	State string
	Lat   float64
	Lon   float64
	Popup string
}

// Viewport is a map camera position.
type Viewport struct {
	Lat  float64
	Lon  float64
	Zoom int
}

// Surface is the rendering target for the map sync loop. All methods are
// called from the sync loop only; implementations must tolerate calls after
// Close by ignoring them.
type Surface interface {
	// PlaceMarker places or replaces the marker for m.Key.
	PlaceMarker(m Marker)

	// ClearMarkers removes every marker.
	ClearMarkers()

	// FitToMarkers adjusts the viewport to contain all placed markers.
	// No-op when no markers are placed.
	FitToMarkers()

	// SetViewport jumps to an explicit camera position.
	SetViewport(v Viewport)

	// Live reports whether the surface can still be drawn on. The sync
	// loop stops silently once this returns false.
	Live() bool
}
