package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"carmonitor/internal/domain"
	"carmonitor/internal/service"
)

// TripService is the trip lifecycle surface used by the HTTP handlers.
type TripService interface {
	RequestTrip(ctx context.Context, req service.RequestTripRequest) (*domain.Trip, error)
	ApproveAndStart(ctx context.Context, tripID, vehicleID string) (*domain.Trip, error)
	Reject(ctx context.Context, tripID, reason string) (*domain.Trip, error)
	Stop(ctx context.Context, tripID string) (*domain.Trip, error)
	AddFine(ctx context.Context, vehicleID string, amount int64) ([]*domain.Trip, error)
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	ListDriverTrips(ctx context.Context, driverID string) ([]*domain.Trip, error)
	ListTripsByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error)
	GetActiveTripForDriver(ctx context.Context, driverID string) (*domain.Trip, error)
	GetActiveTripForVehicle(ctx context.Context, vehicleID string) (*domain.Trip, error)
}

// TripCostService is the cost table surface used by the HTTP handlers.
type TripCostService interface {
	ListActive(ctx context.Context) ([]*domain.TripCost, error)
	CreateTripCost(ctx context.Context, start, end string, cost decimal.Decimal) (*domain.TripCost, error)
	Seed(ctx context.Context) (int, error)
}

// Ensure concrete types implement interfaces.
var (
	_ TripService     = (*service.TripService)(nil)
	_ TripCostService = (*service.TripCostService)(nil)
)
