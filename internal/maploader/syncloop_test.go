package maploader

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/mapview"
	"github.com/fieldstone/caselog/internal/observability"
)

var testDefaultView = mapview.Viewport{Lat: 32.7, Lon: -89.5, Zoom: 7}

type statusRecorder struct {
	lines []string
}

func (r *statusRecorder) record(text string) { r.lines = append(r.lines, text) }

func (r *statusRecorder) last() string {
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

// closingSurface tears itself down after a fixed number of placements.
type closingSurface struct {
	*mapview.HeadlessSurface
	remaining int
}

func (c *closingSurface) PlaceMarker(m mapview.Marker) {
	c.HeadlessSurface.PlaceMarker(m)
	c.remaining--
	if c.remaining <= 0 {
		c.HeadlessSurface.Close()
	}
}

func newTestLoop(q *Queue, surface mapview.Surface, groups map[domain.LocationKey][]domain.Case, status *statusRecorder) *SyncLoop {
	cfg := SyncLoopConfig{
		Queue:       q,
		Surface:     surface,
		Groups:      groups,
		DefaultView: testDefaultView,
		Clock:       clockwork.NewRealClock(),
		Interval:    time.Millisecond,
		Lifecycle:   NewLifecycle(),
		Logger:      discardLogger(),
		Metrics:     observability.NewMetricsForTesting(),
	}
	if status != nil {
		cfg.Status = status.record
	}
	return NewSyncLoop(cfg)
}

func TestSyncLoop_DrainPlacesMarkersAndCounts(t *testing.T) {
	jackson := mustLocation(t, "Jackson", "MS")
	biloxi := mustLocation(t, "Biloxi", "MS")
	nowhere := mustLocation(t, "Nowhereville", "ZZ")

	q := NewQueue()
	q.Push(Event{Kind: EventCacheHit, Loc: jackson, Lat: 32.2988, Lon: -90.1848})
	q.Push(Event{Kind: EventGeocoded, Loc: biloxi, Lat: 30.396, Lon: -88.8853})
	q.Push(Event{Kind: EventSkipped, Loc: nowhere, Reason: "not found"})

	surface := mapview.NewHeadlessSurface(testDefaultView)
	status := &statusRecorder{}
	loop := newTestLoop(q, surface, nil, status)

	assert.True(t, loop.Step())

	assert.Equal(t, 2, surface.MarkerCount())
	geolocated, skipped := loop.Counts()
	assert.Equal(t, 2, geolocated)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "Loading map markers... (2 locations processed, 1 skipped)", status.last())

	// Nothing queued: the loop keeps rescheduling without changes.
	assert.True(t, loop.Step())
	assert.Equal(t, 2, surface.MarkerCount())
}

func TestSyncLoop_PopupListsDistinctOffenses(t *testing.T) {
	jackson := mustLocation(t, "Jackson", "MS")
	groups := map[domain.LocationKey][]domain.Case{
		jackson.Key(): {
			{CityOfOffense: "Jackson", StateOfOffense: "MS", OffenseType: "Fraud"},
			{CityOfOffense: "Jackson", StateOfOffense: "MS", OffenseType: "Theft"},
			{CityOfOffense: "Jackson", StateOfOffense: "MS", OffenseType: "Fraud"},
		},
	}

	q := NewQueue()
	q.Push(Event{Kind: EventGeocoded, Loc: jackson, Lat: 32.2988, Lon: -90.1848})

	surface := mapview.NewHeadlessSurface(testDefaultView)
	loop := newTestLoop(q, surface, groups, nil)
	require.True(t, loop.Step())

	m, ok := surface.Marker(jackson.Key())
	require.True(t, ok)
	assert.Equal(t, "City of Offense: Jackson\n\nTypes of Offense:\n- Fraud\n- Theft", m.Popup)
}

func TestPopupText_Fallbacks(t *testing.T) {
	assert.Equal(t,
		"City of Offense: Jackson\n\nNo case data found for this location.",
		popupText("Jackson", nil))

	assert.Equal(t,
		"City of Offense: Jackson\n\nNo specific offense types listed for this city.",
		popupText("Jackson", []domain.Case{{OffenseType: "  "}}))
}

func TestSyncLoop_FinishedFitsViewportAndReportsStatus(t *testing.T) {
	jackson := mustLocation(t, "Jackson", "MS")
	nowhere := mustLocation(t, "Nowhereville", "ZZ")

	q := NewQueue()
	q.Push(Event{Kind: EventGeocoded, Loc: jackson, Lat: 32.2988, Lon: -90.1848})
	q.Push(Event{Kind: EventSkipped, Loc: nowhere, Reason: "not found"})
	q.Push(Event{Kind: EventFinished})

	surface := mapview.NewHeadlessSurface(mapview.Viewport{})
	status := &statusRecorder{}
	loop := newTestLoop(q, surface, nil, status)

	var order []string
	loop.onFinalizing = func() { order = append(order, "finalizing") }
	loop.onIdle = func() { order = append(order, "idle") }

	assert.False(t, loop.Step())

	assert.Equal(t, []string{"finalizing", "idle"}, order)
	assert.Equal(t, "Map status: Displaying 1 locations with markers. (1 skipped/errored)", status.last())
	// Viewport fitted onto the single marker.
	assert.InDelta(t, 32.2988, surface.Viewport().Lat, 0.001)
}

func TestSyncLoop_FinishedWithNoMarkersSetsDefaultView(t *testing.T) {
	nowhere := mustLocation(t, "Nowhereville", "ZZ")

	q := NewQueue()
	q.Push(Event{Kind: EventSkipped, Loc: nowhere, Reason: "not found"})
	q.Push(Event{Kind: EventFinished})

	surface := mapview.NewHeadlessSurface(mapview.Viewport{})
	status := &statusRecorder{}
	loop := newTestLoop(q, surface, nil, status)

	assert.False(t, loop.Step())
	assert.Equal(t, testDefaultView, surface.Viewport())
	assert.Equal(t, "Map status: No geolocated markers to display. (1 skipped/errored)", status.last())
}

func TestSyncLoop_TornDownSurfaceStopsSilently(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Kind: EventFinished})

	surface := mapview.NewHeadlessSurface(testDefaultView)
	surface.Close()
	status := &statusRecorder{}
	loop := newTestLoop(q, surface, nil, status)

	assert.False(t, loop.Step())
	assert.Empty(t, status.lines)
	assert.Equal(t, 1, q.Len(), "events stay undrained after teardown")
}

func TestSyncLoop_TeardownMidDrainStopsWithoutFurtherMutation(t *testing.T) {
	jackson := mustLocation(t, "Jackson", "MS")
	biloxi := mustLocation(t, "Biloxi", "MS")

	q := NewQueue()
	q.Push(Event{Kind: EventGeocoded, Loc: jackson, Lat: 1, Lon: 2})
	q.Push(Event{Kind: EventGeocoded, Loc: biloxi, Lat: 3, Lon: 4})
	q.Push(Event{Kind: EventFinished})

	surface := &closingSurface{HeadlessSurface: mapview.NewHeadlessSurface(testDefaultView), remaining: 1}
	loop := newTestLoop(q, surface, nil, nil)

	assert.False(t, loop.Step())
	assert.Equal(t, 2, q.Len(), "remaining events abandoned")
}

func TestSyncLoop_ShutdownStopsLoop(t *testing.T) {
	q := NewQueue()
	surface := mapview.NewHeadlessSurface(testDefaultView)
	loop := newTestLoop(q, surface, nil, nil)
	loop.life.Shutdown()

	assert.False(t, loop.Step())
}

func TestSyncLoop_RunDrivesStepsUntilFinished(t *testing.T) {
	jackson := mustLocation(t, "Jackson", "MS")
	q := NewQueue()
	surface := mapview.NewHeadlessSurface(testDefaultView)
	status := &statusRecorder{}
	loop := newTestLoop(q, surface, nil, status)

	aborted := false
	loop.onAborted = func() { aborted = true }

	done := make(chan struct{})
	go func() {
		loop.Run(context.Background())
		close(done)
	}()

	// Feed events while the loop is already ticking.
	q.Push(Event{Kind: EventGeocoded, Loc: jackson, Lat: 1, Lon: 2})
	q.Push(Event{Kind: EventFinished})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sync loop did not finish")
	}

	assert.False(t, aborted)
	assert.Equal(t, 1, surface.MarkerCount())
	geolocated, skipped := loop.Counts()
	assert.Equal(t, 1, geolocated)
	assert.Zero(t, skipped)
}

func TestSyncLoop_RunAbortsOnContextCancel(t *testing.T) {
	q := NewQueue()
	surface := mapview.NewHeadlessSurface(testDefaultView)
	loop := newTestLoop(q, surface, nil, nil)

	aborted := make(chan struct{})
	loop.onAborted = func() { close(aborted) }

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	cancel()

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("abort hook not called")
	}
}
