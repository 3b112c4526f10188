// Package http exposes the diagnostics surface: health and readiness
// probes, Prometheus metrics, and read-only views of the loaded map state.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldstone/caselog/internal/maploader"
	"github.com/fieldstone/caselog/internal/mapview"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// MarkerSource is the read side of the map surface.
type MarkerSource interface {
	Markers() []mapview.Marker
	MarkersWithin(minLat, minLon, maxLat, maxLon float64) []mapview.Marker
	Viewport() mapview.Viewport
	MarkerCount() int
}

// LoadReporter reports the state of the map load pipeline.
type LoadReporter interface {
	State() maploader.State
}

// Server exposes health, readiness, metrics, and map state HTTP endpoints.
type Server struct {
	httpServer *http.Server
	markers    MarkerSource
	loads      LoadReporter
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /markers, and /status routes.
func NewServer(addr string, ready ReadinessChecker, markers MarkerSource, loads LoadReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		markers: markers,
		loads:   loads,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /markers", s.handleMarkers)
	mux.HandleFunc("GET /status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type markerDTO struct {
	Key   string  `json:"key"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

type viewportDTO struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

type markersResponse struct {
	Viewport viewportDTO `json:"viewport"`
	Markers  []markerDTO `json:"markers"`
}

// handleMarkers returns the placed markers, optionally restricted to a
// bounding box given as min_lat, min_lon, max_lat, max_lon query params.
func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	var placed []mapview.Marker

	q := r.URL.Query()
	if q.Has("min_lat") || q.Has("min_lon") || q.Has("max_lat") || q.Has("max_lon") {
		box, err := parseBoundingBox(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		placed = s.markers.MarkersWithin(box[0], box[1], box[2], box[3])
	} else {
		placed = s.markers.Markers()
	}

	resp := markersResponse{
		Viewport: viewportDTO(s.markers.Viewport()),
		Markers:  make([]markerDTO, 0, len(placed)),
	}
	for _, m := range placed {
		resp.Markers = append(resp.Markers, markerDTO{
			Key:   string(m.Key),
			City:  m.City,
			State: m.State,
			Lat:   m.Lat,
			Lon:   m.Lon,
			Popup: m.Popup,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"load_state": s.loads.State().String(),
		"markers":    s.markers.MarkerCount(),
	})
}

func parseBoundingBox(q map[string][]string) ([4]float64, error) {
	var box [4]float64
	for i, name := range []string{"min_lat", "min_lon", "max_lat", "max_lon"} {
		vals, ok := q[name]
		if !ok || len(vals) == 0 {
			return box, fmt.Errorf("missing query param %q", name)
		}
		f, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			return box, fmt.Errorf("query param %q is not a number", name)
		}
		box[i] = f
	}
	if box[0] > box[2] || box[1] > box[3] {
		return box, fmt.Errorf("bounding box minimum exceeds maximum")
	}
	return box, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
