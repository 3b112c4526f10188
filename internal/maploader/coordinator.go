package maploader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/mapview"
	"github.com/fieldstone/caselog/internal/observability"
	"github.com/jonboulle/clockwork"
)

// State is the load-cycle state machine. Running is entered only from Idle;
// Finalizing only upon observing Finished, and always returns to Idle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// CaseSource provides the case snapshot for a load cycle.
type CaseSource interface {
	GetAllCases(ctx context.Context) ([]domain.Case, error)
}

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	Cases       CaseSource
	Cache       Geocache
	Geocoder    domain.Geocoder
	Surface     mapview.Surface
	Lifecycle   *Lifecycle
	Clock       clockwork.Clock
	Throttle    time.Duration
	Timeout     time.Duration
	Interval    time.Duration
	DefaultView mapview.Viewport
	Status      StatusFunc
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Coordinator orchestrates load cycles and guarantees at most one geocoding
// batch is active at a time.
type Coordinator struct {
	cases       CaseSource
	cache       Geocache
	geocoder    domain.Geocoder
	surface     mapview.Surface
	life        *Lifecycle
	clock       clockwork.Clock
	throttle    time.Duration
	timeout     time.Duration
	interval    time.Duration
	defaultView mapview.Viewport
	status      StatusFunc
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu      sync.Mutex
	state   State
	started time.Time
	done    chan struct{}
	// workerDone closes when the current batch's worker goroutine exits.
	// An aborted cycle settles to Idle while its worker may still be
	// geocoding; the channel keeps StartLoad from overlapping workers.
	workerDone chan struct{}
}

// NewCoordinator creates an idle Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		cases:       cfg.Cases,
		cache:       cfg.Cache,
		geocoder:    cfg.Geocoder,
		surface:     cfg.Surface,
		life:        cfg.Lifecycle,
		clock:       cfg.Clock,
		throttle:    cfg.Throttle,
		timeout:     cfg.Timeout,
		interval:    cfg.Interval,
		defaultView: cfg.DefaultView,
		status:      cfg.Status,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
	if c.status == nil {
		c.status = func(string) {}
	}
	return c
}

// StartLoad begins one load cycle: snapshot cases, compute the unique
// location set, and hand it to a fresh worker/sync-loop pair. A call while a
// cycle is active, or while an aborted cycle's worker is still geocoding,
// is a no-op. The empty-location case finishes synchronously with the
// default viewport and no worker.
func (c *Coordinator) StartLoad(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || !c.workerExited() {
		c.mu.Unlock()
		c.logger.Info("map load already in progress, skipping", "state", c.state.String())
		c.status("Map loading already in progress.")
		return nil
	}
	c.state = StateRunning
	c.started = c.clock.Now()
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.metrics.MapLoadRunning.Set(1)
	c.status("Loading map markers (geocoding in progress)...")
	c.surface.ClearMarkers()

	cases, err := c.cases.GetAllCases(ctx)
	if err != nil {
		c.logger.Error("loading cases failed", "error", err)
		c.status("Map status: Could not load case data.")
		c.settle(done)
		return fmt.Errorf("load cases: %w", err)
	}

	locations, groups := groupByLocation(cases)
	if len(locations) == 0 {
		c.surface.SetViewport(c.defaultView)
		if len(cases) == 0 {
			c.logger.Info("map load: no cases to geocode")
			c.status("Map status: No cases to geocode.")
		} else {
			c.logger.Info("map load: no geolocatable cases")
			c.status("Map status: No geolocatable cases (missing city/state).")
		}
		c.settle(done)
		return nil
	}

	queue := NewQueue()
	worker := NewWorker(WorkerConfig{
		Cache:     c.cache,
		Geocoder:  c.geocoder,
		Clock:     c.clock,
		Throttle:  c.throttle,
		Timeout:   c.timeout,
		Lifecycle: c.life,
		Logger:    c.logger,
		Metrics:   c.metrics,
	})
	loop := NewSyncLoop(SyncLoopConfig{
		Queue:       queue,
		Surface:     c.surface,
		Groups:      groups,
		DefaultView: c.defaultView,
		Clock:       c.clock,
		Interval:    c.interval,
		Lifecycle:   c.life,
		Status:      c.status,
		Logger:      c.logger,
		Metrics:     c.metrics,
		OnFinalizing: func() {
			c.mu.Lock()
			c.state = StateFinalizing
			c.mu.Unlock()
		},
		OnIdle: func() {
			c.metrics.MapLoadDuration.Observe(c.clock.Since(c.started).Seconds())
			c.settle(done)
		},
		// A torn-down surface or shutdown leaves the batch unconsumed;
		// return to idle so the next view can load fresh.
		OnAborted: func() { c.settle(done) },
	})

	workerDone := make(chan struct{})
	c.mu.Lock()
	c.workerDone = workerDone
	c.mu.Unlock()

	c.logger.Info("map load started", "unique_locations", len(locations))
	go func() {
		worker.Run(ctx, locations, queue)
		close(workerDone)
	}()
	go loop.Run(ctx)
	return nil
}

// workerExited reports whether the previous batch's worker goroutine has
// finished. Caller holds c.mu.
func (c *Coordinator) workerExited() bool {
	if c.workerDone == nil {
		return true
	}
	select {
	case <-c.workerDone:
		return true
	default:
		return false
	}
}

// State returns the current cycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel closed when the current cycle settles. When no
// cycle has run it returns an already-closed channel.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// CheckReadiness reports nil while the coordinator can accept a load.
// Used by the diagnostics readyz probe.
func (c *Coordinator) CheckReadiness(_ context.Context) error {
	if !c.life.Alive() {
		return fmt.Errorf("shutting down")
	}
	return nil
}

func (c *Coordinator) settle(done chan struct{}) {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.metrics.MapLoadRunning.Set(0)
	close(done)
}

// groupByLocation extracts the unique geocodable locations in first-seen
// order and groups the source cases by location key for popup text.
func groupByLocation(cases []domain.Case) ([]domain.Location, map[domain.LocationKey][]domain.Case) {
	var locations []domain.Location
	groups := make(map[domain.LocationKey][]domain.Case)

	for _, cs := range cases {
		loc, ok := cs.OffenseLocation()
		if !ok {
			continue
		}
		key := loc.Key()
		if _, seen := groups[key]; !seen {
			locations = append(locations, loc)
		}
		groups[key] = append(groups[key], cs)
	}
	return locations, groups
}
