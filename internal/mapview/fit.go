package mapview

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	minZoom = 1
	maxZoom = 15

	// Zoom used when all markers collapse to a single point.
	pointZoom = 12
)

// fitViewport computes the camera position containing every coordinate:
// center of the bounding rect, zoom chosen so the rect's larger span fits
// the standard 360-degree world width at zoom 0.
func fitViewport(coords [][2]float64) Viewport {
	rect := s2.EmptyRect()
	for _, c := range coords {
		rect = rect.AddPoint(s2.LatLngFromDegrees(c[0], c[1]))
	}

	center := rect.Center()
	size := rect.Size()
	span := math.Max(size.Lat.Degrees(), size.Lng.Degrees())

	zoom := pointZoom
	if span > 0.01 {
		zoom = int(math.Floor(math.Log2(360 / span)))
		if zoom < minZoom {
			zoom = minZoom
		}
		if zoom > maxZoom {
			zoom = maxZoom
		}
	}

	return Viewport{
		Lat:  center.Lat.Degrees(),
		Lon:  center.Lng.Degrees(),
		Zoom: zoom,
	}
}
