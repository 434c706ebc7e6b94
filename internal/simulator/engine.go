package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"carmonitor/internal/domain"
)

// ErrInvalidInterval is returned when a tick interval is not positive or exceeds MaxInterval.
var ErrInvalidInterval = errors.New("invalid simulator interval")

// MaxInterval is the longest accepted tick interval.
const MaxInterval = 24 * time.Hour

// VehicleLister lists vehicles by operational status.
type VehicleLister interface {
	ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error)
}

// TripFinder resolves the ACTIVE trip of a vehicle. A nil trip means none.
type TripFinder interface {
	GetActiveTripForVehicle(ctx context.Context, vehicleID string) (*domain.Trip, error)
}

// Sink receives generated samples.
type Sink interface {
	Publish(ctx context.Context, vehicleID string, sample domain.TelemetrySample) error
}

// StatusBroadcaster is told when the engine starts or stops.
type StatusBroadcaster interface {
	NotifySimulatorStatus(ctx context.Context, running bool)
}

// Config holds the engine settings.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Workers  int
}

// Status is a snapshot of the engine.
type Status struct {
	Enabled         bool          `json:"enabled"`
	Running         bool          `json:"running"`
	Interval        time.Duration `json:"-"`
	IntervalMS      int64         `json:"interval_ms"`
	TrackedVehicles int           `json:"tracked_vehicles"`
}

// TickResult summarizes one tick.
type TickResult struct {
	Vehicles  int `json:"vehicles"`
	Published int `json:"published"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type vehicleState struct {
	last    domain.TelemetrySample
	profile *ProfileState
}

// Engine generates telemetry for every vehicle on an active trip at a fixed interval.
type Engine struct {
	vehicles VehicleLister
	trips    TripFinder
	sink     Sink
	status   StatusBroadcaster
	nrApp    *newrelic.Application
	rng      Rand
	now      func() time.Time
	workers  int

	enabled  atomic.Bool
	running  atomic.Bool
	interval atomic.Int64
	resetCh  chan time.Duration

	tickMu sync.Mutex

	stateMu sync.Mutex
	states  map[string]*vehicleState
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = &lockedRand{r: r} }
}

// WithClock sets the clock used for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNewRelic records each tick as a New Relic background transaction.
func WithNewRelic(app *newrelic.Application) Option {
	return func(e *Engine) { e.nrApp = app }
}

// NewEngine creates an Engine. It does nothing until Run is called.
func NewEngine(cfg Config, vehicles VehicleLister, trips TripFinder, sink Sink, status StatusBroadcaster, opts ...Option) *Engine {
	e := &Engine{
		vehicles: vehicles,
		trips:    trips,
		sink:     sink,
		status:   status,
		rng:      &lockedRand{r: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))},
		now:      time.Now,
		workers:  cfg.Workers,
		resetCh:  make(chan time.Duration, 1),
		states:   make(map[string]*vehicleState),
	}
	if e.workers <= 0 {
		e.workers = 1
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	e.interval.Store(int64(interval))
	e.enabled.Store(cfg.Enabled)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run owns the ticker until ctx is cancelled. Ticks never overlap.
func (e *Engine) Run(ctx context.Context) {
	if e.enabled.Load() {
		e.Start(ctx)
	} else {
		log.Info("Telemetry simulator is disabled")
	}

	ticker := time.NewTicker(e.Interval())
	defer ticker.Stop()

	log.WithField("interval", e.Interval()).Info("Telemetry simulator loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Telemetry simulator loop stopped")
			return
		case d := <-e.resetCh:
			ticker.Reset(d)
		case <-ticker.C:
			if !e.enabled.Load() || !e.running.Load() {
				continue
			}
			if _, err := e.Tick(ctx); err != nil {
				log.WithError(err).Error("Telemetry tick failed")
			}
		}
	}
}

// Start enables the engine and marks it running. Returns false if it was
// already running.
func (e *Engine) Start(ctx context.Context) bool {
	e.enabled.Store(true)
	if !e.running.CompareAndSwap(false, true) {
		return false
	}
	log.Info("Telemetry simulation started")
	if e.status != nil {
		e.status.NotifySimulatorStatus(ctx, true)
	}
	return true
}

// Stop marks the engine stopped. Returns false if it was already stopped.
func (e *Engine) Stop(ctx context.Context) bool {
	if !e.running.CompareAndSwap(true, false) {
		return false
	}
	log.Info("Telemetry simulation stopped")
	if e.status != nil {
		e.status.NotifySimulatorStatus(ctx, false)
	}
	return true
}

// SetEnabled toggles the enable flag and starts or stops the engine to match.
func (e *Engine) SetEnabled(ctx context.Context, enabled bool) {
	e.enabled.Store(enabled)
	if enabled {
		e.Start(ctx)
	} else {
		e.Stop(ctx)
	}
	log.WithField("enabled", enabled).Info("Telemetry simulator enabled flag updated")
}

// SetInterval changes the tick interval and restarts the timer.
func (e *Engine) SetInterval(d time.Duration) error {
	if d <= 0 || d > MaxInterval {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	e.interval.Store(int64(d))

	// Keep only the latest pending reset.
	select {
	case <-e.resetCh:
	default:
	}
	select {
	case e.resetCh <- d:
	default:
	}

	log.WithField("interval", d).Info("Telemetry simulator interval updated")
	return nil
}

// Interval returns the current tick interval.
func (e *Engine) Interval() time.Duration {
	return time.Duration(e.interval.Load())
}

// Running reports whether ticks are being generated.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.stateMu.Lock()
	tracked := len(e.states)
	e.stateMu.Unlock()

	return Status{
		Enabled:         e.enabled.Load(),
		Running:         e.running.Load(),
		Interval:        e.Interval(),
		IntervalMS:      e.Interval().Milliseconds(),
		TrackedVehicles: tracked,
	}
}

// Tick runs one simulation pass over the ACTIVE vehicles. A failure for one
// vehicle is logged and does not affect the others.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	if e.nrApp != nil {
		txn := e.nrApp.StartTransaction("simulator/tick")
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	vehicles, err := e.vehicles.ListByStatus(ctx, domain.VehicleStatusActive)
	if err != nil {
		return TickResult{}, fmt.Errorf("list active vehicles: %w", err)
	}

	e.prune(vehicles)

	result := TickResult{Vehicles: len(vehicles)}
	if len(vehicles) == 0 {
		log.Debug("No ACTIVE vehicles, skipping telemetry generation")
		return result, nil
	}

	var published, skipped, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(e.workers)

	for _, v := range vehicles {
		g.Go(func() error {
			ok, err := e.processVehicle(ctx, v.ID)
			switch {
			case err != nil:
				failed.Add(1)
				log.WithError(err).WithField("vehicle_id", v.ID).Warn("Telemetry generation failed")
			case ok:
				published.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Published = int(published.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())

	log.WithFields(log.Fields{
		"vehicles":  result.Vehicles,
		"published": result.Published,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Debug("Telemetry tick complete")

	return result, nil
}

// processVehicle generates and publishes one sample. It returns false when the
// vehicle has no active trip. Panics are converted to errors.
func (e *Engine) processVehicle(ctx context.Context, vehicleID string) (published bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	trip, err := e.trips.GetActiveTripForVehicle(ctx, vehicleID)
	if err != nil {
		return false, fmt.Errorf("get active trip: %w", err)
	}
	if trip == nil {
		e.forget(vehicleID)
		return false, nil
	}

	prev, profile, ok := e.state(vehicleID, trip.ID)
	if !ok {
		prev = Baseline(e.rng, e.now())
	}

	next := Advance(prev, profile, e.rng, e.now())
	next.VehicleID = vehicleID
	next.TripID = trip.ID
	e.retain(vehicleID, next)

	if err := e.sink.Publish(ctx, vehicleID, next); err != nil {
		return false, fmt.Errorf("publish: %w", err)
	}
	return true, nil
}

// state returns the retained sample and profile for the vehicle, discarding
// them first when they belong to a different trip. ok is false when there is
// no retained sample.
func (e *Engine) state(vehicleID, tripID string) (last domain.TelemetrySample, profile *ProfileState, ok bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	st, ok := e.states[vehicleID]
	if ok && st.last.TripID != "" && st.last.TripID != tripID {
		log.WithFields(log.Fields{
			"vehicle_id": vehicleID,
			"old_trip":   st.last.TripID,
			"new_trip":   tripID,
		}).Debug("Trip changed, resetting telemetry")
		ok = false
	}
	if !ok {
		st = &vehicleState{profile: NewProfileState()}
		e.states[vehicleID] = st
	}
	return st.last, st.profile, st.last.TripID != ""
}

func (e *Engine) retain(vehicleID string, sample domain.TelemetrySample) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if st, ok := e.states[vehicleID]; ok {
		st.last = sample
	}
}

func (e *Engine) forget(vehicleID string) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	delete(e.states, vehicleID)
}

// prune drops state for vehicles that are no longer ACTIVE.
func (e *Engine) prune(active []*domain.Vehicle) {
	keep := make(map[string]struct{}, len(active))
	for _, v := range active {
		keep[v.ID] = struct{}{}
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	for id := range e.states {
		if _, ok := keep[id]; !ok {
			delete(e.states, id)
		}
	}
}

// LastSample returns the retained sample for a vehicle.
func (e *Engine) LastSample(vehicleID string) (domain.TelemetrySample, bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	st, ok := e.states[vehicleID]
	if !ok || st.last.TripID == "" {
		return domain.TelemetrySample{}, false
	}
	return st.last, true
}

// lockedRand makes a random source safe for the tick's worker goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
