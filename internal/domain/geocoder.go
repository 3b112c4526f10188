package domain

import (
	"context"
	"errors"
)

// GeocodingResult contains coordinates returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves a location to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a location to coordinates. Failures are
	// classified by the sentinel errors below.
	ForwardGeocode(ctx context.Context, loc Location) (GeocodingResult, error)
}

// Geocoding failure taxonomy. All of these degrade to a skipped location.
var (
	// ErrNoResult means the service answered but found nothing for the query.
	ErrNoResult = errors.New("no geocoding result")

	// ErrGeocodeTimeout means the request exceeded its deadline.
	ErrGeocodeTimeout = errors.New("geocoding timed out")

	// ErrServiceUnavailable means the service refused or could not be reached.
	ErrServiceUnavailable = errors.New("geocoding service unavailable")
)

// SkipReason maps a geocoding failure to the short reason string attached to
// a skipped-location event.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrNoResult):
		return "not found"
	case errors.Is(err, ErrGeocodeTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	default:
		return err.Error()
	}
}
