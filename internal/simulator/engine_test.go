package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmonitor/internal/domain"
)

// ──────────────────────────────────────────────
// FAKES
// ──────────────────────────────────────────────

type fakeFleet struct {
	mu       sync.Mutex
	vehicles []*domain.Vehicle
	trips    map[string]*domain.Trip
	listErr  error
	tripErr  map[string]error
	panicFor string
}

func newFakeFleet() *fakeFleet {
	return &fakeFleet{
		trips:   make(map[string]*domain.Trip),
		tripErr: make(map[string]error),
	}
}

func (f *fakeFleet) activate(vehicleID, tripID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, v := range f.vehicles {
		if v.ID == vehicleID {
			found = true
		}
	}
	if !found {
		f.vehicles = append(f.vehicles, &domain.Vehicle{ID: vehicleID, Status: domain.VehicleStatusActive})
	}
	if tripID == "" {
		delete(f.trips, vehicleID)
		return
	}
	f.trips[vehicleID] = &domain.Trip{ID: tripID, VehicleID: vehicleID, Status: domain.TripStatusActive}
}

func (f *fakeFleet) deactivate(vehicleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.vehicles[:0]
	for _, v := range f.vehicles {
		if v.ID != vehicleID {
			kept = append(kept, v)
		}
	}
	f.vehicles = kept
}

func (f *fakeFleet) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]*domain.Vehicle(nil), f.vehicles...), nil
}

func (f *fakeFleet) GetActiveTripForVehicle(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vehicleID == f.panicFor {
		panic("boom")
	}
	if err := f.tripErr[vehicleID]; err != nil {
		return nil, err
	}
	return f.trips[vehicleID], nil
}

type recordingSink struct {
	mu      sync.Mutex
	samples map[string][]domain.TelemetrySample
	err     error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{samples: make(map[string][]domain.TelemetrySample)}
}

func (s *recordingSink) Publish(ctx context.Context, vehicleID string, sample domain.TelemetrySample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.samples[vehicleID] = append(s.samples[vehicleID], sample)
	return nil
}

func (s *recordingSink) last(vehicleID string) domain.TelemetrySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	got := s.samples[vehicleID]
	return got[len(got)-1]
}

func (s *recordingSink) count(vehicleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples[vehicleID])
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	statuses []bool
}

func (b *recordingBroadcaster) NotifySimulatorStatus(ctx context.Context, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, running)
}

func (b *recordingBroadcaster) all() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.statuses...)
}

func newTestEngine(fleet *fakeFleet, sink Sink, status StatusBroadcaster) *Engine {
	return NewEngine(
		Config{Enabled: true, Interval: time.Hour, Workers: 4},
		fleet, fleet, sink, status,
		WithRand(fixedRand{0}),
		WithClock(func() time.Time { return tickTime }),
	)
}

// ──────────────────────────────────────────────
// TICK
// ──────────────────────────────────────────────

func TestTick_NoActiveVehicles(t *testing.T) {
	t.Parallel()

	sink := newRecordingSink()
	e := newTestEngine(newFakeFleet(), sink, nil)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickResult{}, res)
}

func TestTick_PublishesAttributedSample(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := newTestEngine(fleet, sink, nil)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Published)

	got := sink.last("7")
	assert.Equal(t, "7", got.VehicleID)
	assert.Equal(t, "trip-1", got.TripID)
	assert.Equal(t, speedBandMin, got.Speed)
	assert.Equal(t, 99, got.FuelLevel)
	assert.Equal(t, domain.Waypoints[1], got.Location)

	last, ok := e.LastSample("7")
	require.True(t, ok)
	assert.Equal(t, got, last)
}

func TestTick_TwentyTicksFromBaseline(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := newTestEngine(fleet, sink, nil)

	for i := 0; i < 20; i++ {
		_, err := e.Tick(context.Background())
		require.NoError(t, err)
	}

	got := sink.last("7")
	assert.GreaterOrEqual(t, got.Speed, speedBandMin)
	assert.LessOrEqual(t, got.Speed, speedBandMax)
	assert.Equal(t, 20, sink.count("7"))
}

func TestTick_TripChangeResetsToBaseline(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := newTestEngine(fleet, sink, nil)

	for i := 0; i < 5; i++ {
		_, err := e.Tick(context.Background())
		require.NoError(t, err)
	}
	before := sink.last("7")
	require.Equal(t, speedBandMin+4*speedStep, before.Speed)

	fleet.activate("7", "trip-2")
	_, err := e.Tick(context.Background())
	require.NoError(t, err)

	after := sink.last("7")
	assert.Equal(t, "trip-2", after.TripID)
	assert.Equal(t, speedBandMin, after.Speed, "first step from baseline")
	assert.Equal(t, 99, after.FuelLevel, "fuel restarts from a full tank")
}

func TestTick_NoActiveTripDropsState(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := newTestEngine(fleet, sink, nil)

	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, e.Status().TrackedVehicles)

	fleet.activate("7", "")
	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, e.Status().TrackedVehicles)
	_, ok := e.LastSample("7")
	assert.False(t, ok)
}

func TestTick_PrunesVehiclesNoLongerActive(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	fleet.activate("8", "trip-2")
	sink := newRecordingSink()
	e := newTestEngine(fleet, sink, nil)

	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, e.Status().TrackedVehicles)

	fleet.deactivate("8")
	_, err = e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, e.Status().TrackedVehicles)
	_, ok := e.LastSample("8")
	assert.False(t, ok)
}

func TestTick_VehicleFaultsAreIsolated(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("1", "trip-1")
	fleet.activate("2", "trip-2")
	fleet.activate("3", "trip-3")
	fleet.tripErr["1"] = errors.New("db timeout")
	fleet.panicFor = "2"
	sink := newRecordingSink()
	e := newTestEngine(fleet, sink, nil)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Vehicles)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Published)
	assert.Equal(t, 1, sink.count("3"))
}

func TestTick_ListFailure(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.listErr = errors.New("registry down")
	e := newTestEngine(fleet, newRecordingSink(), nil)

	_, err := e.Tick(context.Background())
	assert.Error(t, err)
}

func TestTick_PublishFailureKeepsState(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	sink.err = errors.New("broker down")
	e := newTestEngine(fleet, sink, nil)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	_, err = e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, speedBandMin+speedStep, sink.last("7").Speed)
}

func TestTick_FuelResetAcrossTicks(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := NewEngine(
		Config{Enabled: true, Interval: time.Hour, Workers: 1},
		fleet, fleet, sink, nil,
		WithRand(fixedRand{1}),
		WithClock(func() time.Time { return tickTime }),
	)

	// Draining 2 per tick empties the tank on tick 50.
	for i := 0; i < 50; i++ {
		_, err := e.Tick(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 0, sink.last("7").FuelLevel)

	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, sink.last("7").FuelLevel)
}

// ──────────────────────────────────────────────
// CONTROL
// ──────────────────────────────────────────────

func TestStartStop_BroadcastOnlyOnChange(t *testing.T) {
	t.Parallel()

	status := &recordingBroadcaster{}
	e := newTestEngine(newFakeFleet(), newRecordingSink(), status)
	ctx := context.Background()

	assert.True(t, e.Start(ctx))
	assert.False(t, e.Start(ctx))
	assert.True(t, e.Running())
	assert.True(t, e.Stop(ctx))
	assert.False(t, e.Stop(ctx))
	assert.False(t, e.Running())

	assert.Equal(t, []bool{true, false}, status.all())
}

func TestStart_EnablesDisabledEngine(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := NewEngine(
		Config{Enabled: false, Interval: time.Hour, Workers: 1},
		fleet, fleet, sink, nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	assert.True(t, e.Start(ctx))
	st := e.Status()
	assert.True(t, st.Enabled)
	assert.True(t, st.Running)

	require.NoError(t, e.SetInterval(10*time.Millisecond))
	assert.Eventually(t, func() bool { return sink.count("7") >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestSetEnabled(t *testing.T) {
	t.Parallel()

	status := &recordingBroadcaster{}
	e := newTestEngine(newFakeFleet(), newRecordingSink(), status)
	ctx := context.Background()

	e.SetEnabled(ctx, true)
	e.SetEnabled(ctx, false)
	e.SetEnabled(ctx, false)

	st := e.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.Running)
	assert.Equal(t, []bool{true, false}, status.all())
}

func TestSetInterval(t *testing.T) {
	t.Parallel()

	e := newTestEngine(newFakeFleet(), newRecordingSink(), nil)

	require.NoError(t, e.SetInterval(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, e.Interval())
	assert.Equal(t, int64(250), e.Status().IntervalMS)

	assert.ErrorIs(t, e.SetInterval(0), ErrInvalidInterval)
	assert.ErrorIs(t, e.SetInterval(-time.Second), ErrInvalidInterval)
	assert.ErrorIs(t, e.SetInterval(MaxInterval+time.Millisecond), ErrInvalidInterval)
	require.NoError(t, e.SetInterval(MaxInterval))
	require.NoError(t, e.SetInterval(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, e.Interval())
}

func TestRun_TicksOnInterval(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	status := &recordingBroadcaster{}
	e := NewEngine(
		Config{Enabled: true, Interval: time.Hour, Workers: 2},
		fleet, fleet, sink, status,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	require.NoError(t, e.SetInterval(10*time.Millisecond))
	assert.Eventually(t, func() bool { return sink.count("7") >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []bool{true}, status.all())
}

func TestRun_DisabledDoesNotTick(t *testing.T) {
	t.Parallel()

	fleet := newFakeFleet()
	fleet.activate("7", "trip-1")
	sink := newRecordingSink()
	e := NewEngine(
		Config{Enabled: false, Interval: 5 * time.Millisecond, Workers: 1},
		fleet, fleet, sink, nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	e.Run(ctx)

	assert.Equal(t, 0, sink.count("7"))
	assert.False(t, e.Running())
}

// ──────────────────────────────────────────────
// SINKS
// ──────────────────────────────────────────────

func TestMultiSink_DeliversDespiteFailure(t *testing.T) {
	t.Parallel()

	failing := newRecordingSink()
	failing.err = errors.New("mqtt down")
	ok := newRecordingSink()

	err := MultiSink{failing, ok}.Publish(context.Background(), "7", domain.TelemetrySample{VehicleID: "7"})

	assert.ErrorContains(t, err, "mqtt down")
	assert.Equal(t, 1, ok.count("7"))
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	assert.NoError(t, LogSink{}.Publish(context.Background(), "7", domain.TelemetrySample{}))
}
