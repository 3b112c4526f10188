package main

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/fieldstone/caselog/internal/config"
	"github.com/fieldstone/caselog/internal/geocoder/nominatim"
	"github.com/fieldstone/caselog/internal/maploader"
	"github.com/fieldstone/caselog/internal/mapview"
	"github.com/fieldstone/caselog/internal/observability"
	"github.com/fieldstone/caselog/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "caselog",
	Short:        "Forensic case log with geocoded case mapping",
	Long:         `Manage a forensic case log: record cases, geocode offense locations through Nominatim with a persistent cache, and inspect the resulting map markers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(serveCmd)
}

// app bundles the wired dependencies shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   *store.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		store:   st,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("store close error", "error", err)
	}
}

// newCoordinator wires the full map load pipeline: Nominatim client,
// headless surface, and the coordinator that drives worker and sync loop.
func (a *app) newCoordinator(status maploader.StatusFunc) (*maploader.Coordinator, *mapview.HeadlessSurface, *maploader.Lifecycle) {
	geocoder := nominatim.NewClient(
		a.cfg.GeocoderBaseURL, a.cfg.GeocoderUserAgent, a.cfg.GeocoderTimeout,
		a.metrics, a.logger,
	)

	defaultView := mapview.Viewport{
		Lat:  a.cfg.DefaultLat,
		Lon:  a.cfg.DefaultLon,
		Zoom: a.cfg.DefaultZoom,
	}
	surface := mapview.NewHeadlessSurface(defaultView)
	life := maploader.NewLifecycle()

	coord := maploader.NewCoordinator(maploader.CoordinatorConfig{
		Cases:       a.store,
		Cache:       a.store,
		Geocoder:    geocoder,
		Surface:     surface,
		Lifecycle:   life,
		Clock:       clockwork.NewRealClock(),
		Throttle:    a.cfg.GeocodeThrottle,
		Timeout:     a.cfg.GeocoderTimeout,
		Interval:    a.cfg.SyncInterval,
		DefaultView: defaultView,
		Status:      status,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})
	return coord, surface, life
}
