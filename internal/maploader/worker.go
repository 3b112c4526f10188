package maploader

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Geocache is the durable location cache consumed by the worker. A read
// error is treated as a miss; a write error skips caching. Neither aborts
// the batch.
type Geocache interface {
	LookupLocation(ctx context.Context, key domain.LocationKey) (lat, lon float64, ok bool, err error)
	PutLocation(ctx context.Context, key domain.LocationKey, lat, lon float64) error
}

// WorkerConfig wires a Worker.
type WorkerConfig struct {
	Cache    Geocache
	Geocoder domain.Geocoder
	Clock    clockwork.Clock
	// Throttle is the minimum interval between network-bound lookups.
	Throttle time.Duration
	// Timeout bounds one geocoding call.
	Timeout   time.Duration
	Lifecycle *Lifecycle
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Worker resolves a batch of unique locations to coordinates on a background
// goroutine. It never touches map state; all output flows through the queue.
type Worker struct {
	cache    Geocache
	geocoder domain.Geocoder
	clock    clockwork.Clock
	throttle time.Duration
	timeout  time.Duration
	life     *Lifecycle
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWorker creates a Worker.
func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		cache:    cfg.Cache,
		geocoder: cfg.Geocoder,
		clock:    cfg.Clock,
		throttle: cfg.Throttle,
		timeout:  cfg.Timeout,
		life:     cfg.Lifecycle,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Run processes locations in order and pushes one event per location plus a
// terminal Finished event. On early stop (shutdown or context cancellation)
// it returns without pushing Finished; already-pushed events remain valid.
// Run never fails: every per-location error becomes a Skipped event.
func (w *Worker) Run(ctx context.Context, locations []domain.Location, results *Queue) {
	w.logger.Info("geocoding worker started", "locations", len(locations))

	for _, loc := range locations {
		if !w.life.Alive() || ctx.Err() != nil {
			w.logger.Info("geocoding worker stopped early")
			return
		}

		lat, lon, ok, err := w.cache.LookupLocation(ctx, loc.Key())
		if err != nil {
			w.logger.Warn("geocache read failed, treating as miss", "key", loc.Key(), "error", err)
		}
		if ok {
			w.metrics.GeocodeCache.WithLabelValues("hit").Inc()
			results.Push(Event{Kind: EventCacheHit, Loc: loc, Lat: lat, Lon: lon})
			// Cache hits bypass the throttle.
			continue
		}
		w.metrics.GeocodeCache.WithLabelValues("miss").Inc()

		w.resolve(ctx, loc, results)

		// One network-bound lookup per throttle interval, whether or not
		// the lookup resolved.
		if !w.sleep(ctx) {
			w.logger.Info("geocoding worker stopped during throttle")
			return
		}
	}

	results.Push(Event{Kind: EventFinished})
	w.logger.Info("geocoding worker finished")
}

// resolve performs one external lookup with write-through caching.
func (w *Worker) resolve(ctx context.Context, loc domain.Location, results *Queue) {
	gctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	res, err := w.geocoder.ForwardGeocode(gctx, loc)
	if err != nil {
		reason := domain.SkipReason(err)
		w.logger.Warn("geocoding failed", "location", loc.String(), "reason", reason)
		results.Push(Event{Kind: EventSkipped, Loc: loc, Reason: reason})
		return
	}

	if err := w.cache.PutLocation(ctx, loc.Key(), res.Lat, res.Lon); err != nil {
		w.metrics.CacheWriteErrors.Inc()
		w.logger.Warn("geocache write failed", "key", loc.Key(), "error", err)
	}
	results.Push(Event{Kind: EventGeocoded, Loc: loc, Lat: res.Lat, Lon: res.Lon})
}

// sleep waits out the throttle interval. Returns false when the context was
// cancelled first.
func (w *Worker) sleep(ctx context.Context) bool {
	if w.throttle <= 0 {
		return true
	}
	timer := w.clock.NewTimer(w.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
