package mapview

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/fieldstone/caselog/internal/domain"
)

const (
	rtreeDimensions  = 2
	rtreeMinChildren = 25
	rtreeMaxChildren = 50

	// Point markers are indexed as near-degenerate rects.
	pointTolerance = 0.0001
)

// spatialMarker wraps a Marker for R-tree indexing.
type spatialMarker struct {
	marker Marker
	rect   *rtreego.Rect
}

func (s *spatialMarker) Bounds() *rtreego.Rect { return s.rect }

// HeadlessSurface is an in-memory Surface backed by an R-tree index, usable
// without any GUI toolkit. It is safe for concurrent reads; mutation happens
// only from the sync loop, but the internal lock keeps readers consistent.
type HeadlessSurface struct {
	mu       sync.RWMutex
	markers  map[domain.LocationKey]*spatialMarker
	tree     *rtreego.Rtree
	viewport Viewport
	closed   bool
}

// NewHeadlessSurface creates an empty surface positioned at the given
// initial viewport.
func NewHeadlessSurface(initial Viewport) *HeadlessSurface {
	return &HeadlessSurface{
		markers:  make(map[domain.LocationKey]*spatialMarker),
		tree:     rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren),
		viewport: initial,
	}
}

// PlaceMarker places or replaces the marker for m.Key. Replacement is
// idempotent: placing the same key twice keeps exactly one marker.
func (h *HeadlessSurface) PlaceMarker(m Marker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	if old, ok := h.markers[m.Key]; ok {
		h.tree.Delete(old)
	}

	p := rtreego.Point{m.Lat, m.Lon}
	sm := &spatialMarker{marker: m, rect: p.ToRect(pointTolerance)}
	h.markers[m.Key] = sm
	h.tree.Insert(sm)
}

// ClearMarkers removes every marker and resets the spatial index.
func (h *HeadlessSurface) ClearMarkers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.markers = make(map[domain.LocationKey]*spatialMarker)
	h.tree = rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren)
}

// FitToMarkers adjusts the viewport to contain all placed markers.
func (h *HeadlessSurface) FitToMarkers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.markers) == 0 {
		return
	}

	coords := make([][2]float64, 0, len(h.markers))
	for _, sm := range h.markers {
		coords = append(coords, [2]float64{sm.marker.Lat, sm.marker.Lon})
	}
	h.viewport = fitViewport(coords)
}

// SetViewport jumps to an explicit camera position.
func (h *HeadlessSurface) SetViewport(v Viewport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.viewport = v
}

// Live reports whether the surface is still open.
func (h *HeadlessSurface) Live() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.closed
}

// Close tears the surface down. Subsequent mutations are ignored.
func (h *HeadlessSurface) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// Viewport returns the current camera position.
func (h *HeadlessSurface) Viewport() Viewport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// MarkerCount returns the number of placed markers.
func (h *HeadlessSurface) MarkerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.markers)
}

// Marker returns the placed marker for key, if any.
func (h *HeadlessSurface) Marker(key domain.LocationKey) (Marker, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sm, ok := h.markers[key]
	if !ok {
		return Marker{}, false
	}
	return sm.marker, true
}

// Markers returns all placed markers sorted by key.
func (h *HeadlessSurface) Markers() []Marker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Marker, 0, len(h.markers))
	for _, sm := range h.markers {
		out = append(out, sm.marker)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MarkersWithin returns the markers inside the given lat/lon bounding box.
func (h *HeadlessSurface) MarkersWithin(minLat, minLon, maxLat, maxLon float64) []Marker {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bounds, err := rtreego.NewRect(
		rtreego.Point{minLat, minLon},
		[]float64{maxLat - minLat, maxLon - minLon},
	)
	if err != nil {
		return nil
	}

	results := h.tree.SearchIntersect(bounds)
	out := make([]Marker, 0, len(results))
	for _, r := range results {
		if sm, ok := r.(*spatialMarker); ok {
			out = append(out, sm.marker)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
