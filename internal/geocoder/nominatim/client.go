// Package nominatim implements domain.Geocoder against the OSM Nominatim
// search API. Callers must respect the service's one-request-per-second
// usage policy; the worker's throttle enforces it.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/observability"
)

// Client is an HTTP client for the Nominatim search endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim geocoding client. Nominatim requires an
// identifying User-Agent on every request.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode resolves a location to coordinates using the composite
// "{city}, {state}, USA" query. Failures map onto the domain sentinel
// errors so the worker can classify them.
func (c *Client) ForwardGeocode(ctx context.Context, loc domain.Location) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":      {loc.Query()},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.GeocodingResult{}, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decoding
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout:
		c.metrics.GeocodeRequests.WithLabelValues("unavailable").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrServiceUnavailable)
	default:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("nominatim API error: status %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("%q: %w", loc.Query(), domain.ErrNoResult)
	}

	p := places[0]
	lat, latErr := strconv.ParseFloat(p.Lat, 64)
	lon, lonErr := strconv.ParseFloat(p.Lon, 64)
	if latErr != nil || lonErr != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("invalid coordinates %q,%q", p.Lat, p.Lon)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forward geocode", "query", loc.Query(), "lat", lat, "lon", lon)
	return domain.GeocodingResult{Lat: lat, Lon: lon, DisplayName: p.DisplayName}, nil
}

func (c *Client) classifyTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		c.metrics.GeocodeRequests.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%v: %w", err, domain.ErrGeocodeTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.metrics.GeocodeRequests.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%v: %w", err, domain.ErrGeocodeTimeout)
	}
	c.metrics.GeocodeRequests.WithLabelValues("unavailable").Inc()
	return fmt.Errorf("%v: %w", err, domain.ErrServiceUnavailable)
}

// Nominatim jsonv2 response shape. Coordinates come back as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
