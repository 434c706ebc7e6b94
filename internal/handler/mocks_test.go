package handler

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"carmonitor/internal/domain"
	"carmonitor/internal/service"
)

// ──────────────────────────────────────────────
// MOCK TRIP SERVICE
// ──────────────────────────────────────────────

// approveCall records the arguments of one ApproveAndStart call.
type approveCall struct {
	TripID    string
	VehicleID string
}

// MockTripService serves canned trips and records the arguments it was called with.
type MockTripService struct {
	mu       sync.RWMutex
	trips    map[string]*domain.Trip
	active   map[string]*domain.Trip // by driver ID
	requests []service.RequestTripRequest
	approves []approveCall
	reasons  []string
	statuses []domain.TripStatus

	// Err, when set, is returned by every operation.
	Err error
}

func NewMockTripService() *MockTripService {
	return &MockTripService{
		trips:  make(map[string]*domain.Trip),
		active: make(map[string]*domain.Trip),
	}
}

func (m *MockTripService) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	if trip.Status == domain.TripStatusActive {
		m.active[trip.DriverID] = trip
	}
}

func (m *MockTripService) RequestTrip(ctx context.Context, req service.RequestTripRequest) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	trip := domain.NewTrip("trip-new", req.DriverID, req.StartLocation, req.EndLocation, fixtureTime)
	trip.VehicleID = req.VehicleID
	trip.SetBaseCost(decimal.NewFromInt(150))
	m.trips[trip.ID] = trip
	return trip, nil
}

func (m *MockTripService) ApproveAndStart(ctx context.Context, tripID, vehicleID string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approves = append(m.approves, approveCall{TripID: tripID, VehicleID: vehicleID})
	if m.Err != nil {
		return nil, m.Err
	}
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, service.ErrTripNotFound
	}
	if err := trip.Approve(fixtureTime); err != nil {
		return nil, err
	}
	if err := trip.Start(fixtureTime); err != nil {
		return nil, err
	}
	if vehicleID != "" {
		trip.VehicleID = vehicleID
	}
	return trip, nil
}

func (m *MockTripService) Reject(ctx context.Context, tripID, reason string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
	if m.Err != nil {
		return nil, m.Err
	}
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, service.ErrTripNotFound
	}
	if err := trip.Reject(fixtureTime); err != nil {
		return nil, err
	}
	return trip, nil
}

func (m *MockTripService) Stop(ctx context.Context, tripID string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, service.ErrTripNotFound
	}
	if err := trip.Complete(fixtureTime); err != nil {
		return nil, err
	}
	delete(m.active, trip.DriverID)
	return trip, nil
}

func (m *MockTripService) AddFine(ctx context.Context, vehicleID string, amount int64) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if amount < 0 {
		return nil, service.ErrInvalidFineAmount
	}
	fined := []*domain.Trip{}
	for _, t := range m.trips {
		if t.VehicleID == vehicleID && t.Status == domain.TripStatusActive {
			t.AddFine(decimal.NewFromInt(amount), fixtureTime)
			fined = append(fined, t)
		}
	}
	return fined, nil
}

func (m *MockTripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, service.ErrTripNotFound
	}
	return trip, nil
}

func (m *MockTripService) ListDriverTrips(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []*domain.Trip{}
	for _, t := range m.trips {
		if t.DriverID == driverID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTripService) ListTripsByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	if m.Err != nil {
		return nil, m.Err
	}
	if !status.Valid() {
		return nil, service.ErrInvalidTripStatus
	}
	out := []*domain.Trip{}
	for _, t := range m.trips {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTripService) GetActiveTripForDriver(ctx context.Context, driverID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.active[driverID], nil
}

func (m *MockTripService) GetActiveTripForVehicle(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.active {
		if t.VehicleID == vehicleID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *MockTripService) LastApprove() approveCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.approves) == 0 {
		return approveCall{}
	}
	return m.approves[len(m.approves)-1]
}

func (m *MockTripService) LastReason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.reasons) == 0 {
		return ""
	}
	return m.reasons[len(m.reasons)-1]
}

func (m *MockTripService) LastStatus() domain.TripStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

func (m *MockTripService) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// ──────────────────────────────────────────────
// MOCK TRIP COST SERVICE
// ──────────────────────────────────────────────

// MockTripCostService keeps costs keyed by ordered pair and never overwrites one.
type MockTripCostService struct {
	mu    sync.RWMutex
	costs map[[2]string]*domain.TripCost

	// SeedErr, when set, is returned by Seed.
	SeedErr error
}

func NewMockTripCostService() *MockTripCostService {
	return &MockTripCostService{costs: make(map[[2]string]*domain.TripCost)}
}

func (m *MockTripCostService) ListActive(ctx context.Context) ([]*domain.TripCost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.TripCost{}
	for _, tc := range m.costs {
		out = append(out, tc)
	}
	return out, nil
}

func (m *MockTripCostService) CreateTripCost(ctx context.Context, start, end string, cost decimal.Decimal) (*domain.TripCost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !cost.IsPositive() {
		return nil, service.ErrInvalidCost
	}
	key := [2]string{start, end}
	if _, ok := m.costs[key]; ok {
		return nil, service.ErrTripCostExists
	}
	tc := &domain.TripCost{
		ID:            "cost-" + start + "-" + end,
		StartLocation: start,
		EndLocation:   end,
		BaseCost:      cost,
		IsActive:      true,
		CreatedAt:     fixtureTime,
	}
	m.costs[key] = tc
	return tc, nil
}

func (m *MockTripCostService) Seed(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SeedErr != nil {
		return 0, m.SeedErr
	}
	inserted := 0
	for i, start := range domain.Waypoints {
		for j, end := range domain.Waypoints {
			key := [2]string{start, end}
			if i == j {
				continue
			}
			if _, ok := m.costs[key]; ok {
				continue
			}
			m.costs[key] = &domain.TripCost{StartLocation: start, EndLocation: end, BaseCost: service.SeedCost(i, j), IsActive: true}
			inserted++
		}
	}
	return inserted, nil
}
