package maploader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/mapview"
	"github.com/fieldstone/caselog/internal/observability"
	"github.com/jonboulle/clockwork"
)

// StatusFunc receives user-facing status line updates.
type StatusFunc func(text string)

// SyncLoopConfig wires a SyncLoop.
type SyncLoopConfig struct {
	Queue   *Queue
	Surface mapview.Surface
	// Groups maps each location key to the cases recorded there, used to
	// compose marker popup text.
	Groups      map[domain.LocationKey][]domain.Case
	DefaultView mapview.Viewport
	Clock       clockwork.Clock
	Interval    time.Duration
	Lifecycle   *Lifecycle
	Status      StatusFunc
	Logger      *slog.Logger
	Metrics     *observability.Metrics

	// OnFinalizing fires when the Finished event is observed, before any
	// finalize work. OnIdle fires once finalization is complete. OnAborted
	// fires when the loop stops without finishing (teardown or shutdown).
	OnFinalizing func()
	OnIdle       func()
	OnAborted    func()
}

// SyncLoop bridges worker output to the map surface without ever blocking:
// each tick drains whatever events are queued, mutates the surface, and
// yields. It is the only component that touches map state and counters, so
// neither needs a lock.
type SyncLoop struct {
	queue       *Queue
	surface     mapview.Surface
	groups      map[domain.LocationKey][]domain.Case
	defaultView mapview.Viewport
	clock       clockwork.Clock
	interval    time.Duration
	life        *Lifecycle
	status      StatusFunc
	logger      *slog.Logger
	metrics     *observability.Metrics

	onFinalizing func()
	onIdle       func()
	onAborted    func()

	geolocated int
	skipped    int
	finished   bool
}

// NewSyncLoop creates a SyncLoop.
func NewSyncLoop(cfg SyncLoopConfig) *SyncLoop {
	noop := func() {}
	l := &SyncLoop{
		queue:        cfg.Queue,
		surface:      cfg.Surface,
		groups:       cfg.Groups,
		defaultView:  cfg.DefaultView,
		clock:        cfg.Clock,
		interval:     cfg.Interval,
		life:         cfg.Lifecycle,
		status:       cfg.Status,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		onFinalizing: cfg.OnFinalizing,
		onIdle:       cfg.OnIdle,
		onAborted:    cfg.OnAborted,
	}
	if l.status == nil {
		l.status = func(string) {}
	}
	if l.onFinalizing == nil {
		l.onFinalizing = noop
	}
	if l.onIdle == nil {
		l.onIdle = noop
	}
	if l.onAborted == nil {
		l.onAborted = noop
	}
	return l
}

// Run drives Step on the configured tick until the batch finishes, the
// surface is torn down, or the context is cancelled.
func (l *SyncLoop) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if !l.Step() {
			if !l.finished {
				l.logger.Info("map sync loop aborted")
				l.onAborted()
			}
			return
		}
		select {
		case <-ctx.Done():
			l.logger.Info("map sync loop stopped", "reason", ctx.Err())
			l.onAborted()
			return
		case <-ticker.Chan():
		}
	}
}

// Step drains all currently available events without waiting. It returns
// false when the loop should stop rescheduling: batch finished, surface torn
// down, or application shut down.
func (l *SyncLoop) Step() bool {
	if !l.life.Alive() || !l.surface.Live() {
		return false
	}

	for {
		ev, ok := l.queue.TryPop()
		if !ok {
			return true
		}

		switch ev.Kind {
		case EventCacheHit, EventGeocoded:
			l.placeMarker(ev)
		case EventSkipped:
			l.skipped++
			l.metrics.LocationsSkipped.Inc()
			l.logger.Debug("location skipped", "location", ev.Loc.String(), "reason", ev.Reason)
			l.reportProgress()
		case EventFinished:
			l.finished = true
			l.onFinalizing()
			l.finalize()
			l.onIdle()
			return false
		}

		// Torn down mid-drain: stop without further mutation. Undrained
		// events are abandoned, which is an accepted no-op.
		if !l.surface.Live() {
			l.logger.Warn("map surface torn down mid-drain")
			return false
		}
	}
}

// Counts returns the running counters. Valid from the loop goroutine, or
// after the cycle has settled.
func (l *SyncLoop) Counts() (geolocated, skipped int) {
	return l.geolocated, l.skipped
}

func (l *SyncLoop) placeMarker(ev Event) {
	key := ev.Loc.Key()
	l.surface.PlaceMarker(mapview.Marker{
		Key:   key,
		City:  ev.Loc.City,
		State: ev.Loc.State,
		Lat:   ev.Lat,
		Lon:   ev.Lon,
		Popup: popupText(ev.Loc.City, l.groups[key]),
	})
	l.geolocated++
	l.metrics.LocationsGeolocated.Inc()
	l.logger.Debug("marker placed", "location", ev.Loc.String(), "source", ev.Kind.String())
	l.reportProgress()
}

func (l *SyncLoop) reportProgress() {
	l.status(fmt.Sprintf("Loading map markers... (%d locations processed, %d skipped)",
		l.geolocated, l.skipped))
}

func (l *SyncLoop) finalize() {
	var final string
	if l.geolocated > 0 {
		l.surface.FitToMarkers()
		final = fmt.Sprintf("Map status: Displaying %d locations with markers.", l.geolocated)
	} else {
		l.surface.SetViewport(l.defaultView)
		final = "Map status: No geolocated markers to display."
	}
	if l.skipped > 0 {
		final += fmt.Sprintf(" (%d skipped/errored)", l.skipped)
	}
	l.status(final)
	l.logger.Info("map load finalized", "geolocated", l.geolocated, "skipped", l.skipped)
}

// popupText composes the marker popup: the city name plus the distinct
// offense types recorded there, sorted, each listed once.
func popupText(city string, cases []domain.Case) string {
	var b strings.Builder
	fmt.Fprintf(&b, "City of Offense: %s\n", city)

	if len(cases) == 0 {
		b.WriteString("\nNo case data found for this location.")
		return b.String()
	}

	seen := make(map[string]struct{})
	var offenses []string
	for _, c := range cases {
		offense := strings.TrimSpace(c.OffenseType)
		if offense == "" {
			continue
		}
		if _, dup := seen[offense]; dup {
			continue
		}
		seen[offense] = struct{}{}
		offenses = append(offenses, offense)
	}

	if len(offenses) == 0 {
		b.WriteString("\nNo specific offense types listed for this city.")
		return b.String()
	}

	sort.Strings(offenses)
	b.WriteString("\nTypes of Offense:\n")
	for _, offense := range offenses {
		fmt.Fprintf(&b, "- %s\n", offense)
	}
	return strings.TrimRight(b.String(), "\n")
}
