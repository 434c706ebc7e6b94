package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"carmonitor/internal/domain"
	"carmonitor/internal/redis"
	"carmonitor/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	return m.filter(func(t *domain.Trip) bool { return t.DriverID == driverID && t.IsActive }), nil
}

func (m *MockTripRepository) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	return m.filter(func(t *domain.Trip) bool { return t.Status == status }), nil
}

func (m *MockTripRepository) ListActiveByVehicleID(ctx context.Context, vehicleID string) ([]*domain.Trip, error) {
	return m.filter(func(t *domain.Trip) bool {
		return t.VehicleID == vehicleID && t.Status == domain.TripStatusActive
	}), nil
}

func (m *MockTripRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	trips := m.filter(func(t *domain.Trip) bool {
		return t.DriverID == driverID && t.Status == domain.TripStatusActive
	})
	if len(trips) == 0 {
		return nil, nil // No active trip
	}
	return trips[0], nil
}

func (m *MockTripRepository) GetActiveByVehicleID(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	trips := m.filter(func(t *domain.Trip) bool {
		return t.VehicleID == vehicleID && t.Status == domain.TripStatusActive
	})
	if len(trips) == 0 {
		return nil, nil // No active trip
	}
	return trips[0], nil
}

// filter returns copies of matching trips, sorted by ID for stable assertions.
func (m *MockTripRepository) filter(match func(*domain.Trip) bool) []*domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0)
	for _, t := range m.trips {
		if match(t) {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// GetTrip returns trip for assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// CountTrips returns the number of trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	GetError    error
	UpdateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	UpdateError error
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[string]*domain.Vehicle),
	}
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockVehicleRepository) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *vehicle
	return &copy, nil
}

func (m *MockVehicleRepository) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Vehicle, 0)
	for _, v := range m.vehicles {
		if v.Status == status {
			copy := *v
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockVehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[vehicle.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *vehicle
	m.vehicles[vehicle.ID] = &copy
	return nil
}

// GetVehicle returns vehicle for test assertions.
func (m *MockVehicleRepository) GetVehicle(id string) *domain.Vehicle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vehicles[id]
}

// ──────────────────────────────────────────────
// MOCK TRIP COST REPOSITORY
// ──────────────────────────────────────────────

// MockTripCostRepository is a mock implementation of TripCostRepository.
// Like the unique (start_point, end_point) constraint, Save never overwrites.
type MockTripCostRepository struct {
	mu    sync.RWMutex
	costs map[string]*domain.TripCost

	// Counters
	FindCallCount int32
	SaveCallCount int32

	// Error injection
	FindError error
	SaveError error
}

// NewMockTripCostRepository creates a new mock trip cost repository.
func NewMockTripCostRepository() *MockTripCostRepository {
	return &MockTripCostRepository{
		costs: make(map[string]*domain.TripCost),
	}
}

func costKey(start, end string) string {
	return start + "|" + end
}

// AddCost adds a trip cost to the mock repository.
func (m *MockTripCostRepository) AddCost(cost *domain.TripCost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costs[costKey(cost.StartLocation, cost.EndLocation)] = cost
}

func (m *MockTripCostRepository) FindActive(ctx context.Context, start, end string) (*domain.TripCost, error) {
	atomic.AddInt32(&m.FindCallCount, 1)
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cost, ok := m.costs[costKey(start, end)]
	if !ok || !cost.IsActive {
		return nil, nil
	}
	copy := *cost
	return &copy, nil
}

func (m *MockTripCostRepository) Save(ctx context.Context, cost *domain.TripCost) (bool, error) {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return false, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := costKey(cost.StartLocation, cost.EndLocation)
	if _, exists := m.costs[key]; exists {
		return false, nil
	}
	copy := *cost
	m.costs[key] = &copy
	return true, nil
}

func (m *MockTripCostRepository) ListActive(ctx context.Context) ([]*domain.TripCost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TripCost, 0, len(m.costs))
	for _, c := range m.costs {
		if c.IsActive {
			copy := *c
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountCosts returns the number of stored trip costs.
func (m *MockTripCostRepository) CountCosts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.costs)
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs fn directly against the mock repositories.
type MockTransactor struct {
	repos repository.Repositories

	// Counters
	CallCount int32
}

// NewMockTransactor creates a transactor over the given mocks.
func NewMockTransactor(trips repository.TripRepository, vehicles repository.VehicleRepository, drivers repository.DriverRepository) *MockTransactor {
	return &MockTransactor{
		repos: repository.Repositories{
			Trips:    trips,
			Vehicles: vehicles,
			Drivers:  drivers,
		},
	}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	atomic.AddInt32(&m.CallCount, 1)
	return fn(ctx, m.repos)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

// Hold marks key as held by another owner.
func (m *MockLockStore) Hold(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[key] = "other-owner"
}

func (m *MockLockStore) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return false, nil
	}
	m.locks[key] = token
	return true, nil
}

func (m *MockLockStore) ReleaseLock(ctx context.Context, key, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] == token {
		delete(m.locks, key)
	}
	return nil
}

// HeldKeys returns the currently held keys.
func (m *MockLockStore) HeldKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.locks))
	for k := range m.locks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ redis.LockStoreInterface = (*MockLockStore)(nil)

// ──────────────────────────────────────────────
// MOCK NOTIFICATION GATEWAY
// ──────────────────────────────────────────────

// DirectMessage is a message captured by MockGateway.SendToUser.
type DirectMessage struct {
	Username string
	Message  string
}

// MockGateway records everything published through it.
type MockGateway struct {
	mu         sync.Mutex
	broadcasts []map[string]any
	messages   []DirectMessage
	statuses   []bool

	// Error injection
	BroadcastError error
	SendError      error
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) BroadcastSystemStatus(ctx context.Context, payload map[string]any) error {
	if m.BroadcastError != nil {
		return m.BroadcastError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, payload)
	return nil
}

func (m *MockGateway) SendToUser(ctx context.Context, username, message string) error {
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, DirectMessage{Username: username, Message: message})
	return nil
}

func (m *MockGateway) BroadcastSimulatorStatus(ctx context.Context, running bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, running)
	return nil
}

// Broadcasts returns the broadcast payloads in order.
func (m *MockGateway) Broadcasts() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.broadcasts...)
}

// Messages returns the direct messages in order.
func (m *MockGateway) Messages() []DirectMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DirectMessage(nil), m.messages...)
}

// Statuses returns the simulator status broadcasts in order.
func (m *MockGateway) Statuses() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.statuses...)
}

// ──────────────────────────────────────────────
// TEST FIXTURE
// ──────────────────────────────────────────────

type tripFixture struct {
	trips    *MockTripRepository
	drivers  *MockDriverRepository
	vehicles *MockVehicleRepository
	costs    *MockTripCostRepository
	locks    *MockLockStore
	gateway  *MockGateway
	service  *TripService
	now      time.Time
}

func newTripFixture() *tripFixture {
	f := &tripFixture{
		trips:    NewMockTripRepository(),
		drivers:  NewMockDriverRepository(),
		vehicles: NewMockVehicleRepository(),
		costs:    NewMockTripCostRepository(),
		locks:    NewMockLockStore(),
		gateway:  NewMockGateway(),
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	costService := NewTripCostService(f.costs, nil)
	f.service = NewTripService(
		NewMockTransactor(f.trips, f.vehicles, f.drivers),
		f.trips,
		f.vehicles,
		f.drivers,
		costService,
		f.locks,
		NewNotificationService(f.gateway),
	)
	f.service.now = func() time.Time { return f.now }
	f.service.locker.wait = 20 * time.Millisecond
	f.service.locker.backoff = 5 * time.Millisecond

	return f
}
