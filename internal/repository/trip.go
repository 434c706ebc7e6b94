package repository

import (
	"context"

	"carmonitor/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// Update updates an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error

	// ListByDriverID retrieves the non-deleted trips of a driver, newest first.
	ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error)

	// ListByStatus retrieves all trips in the given status, newest first.
	ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error)

	// ListActiveByVehicleID retrieves every ACTIVE trip of a vehicle.
	ListActiveByVehicleID(ctx context.Context, vehicleID string) ([]*domain.Trip, error)

	// GetActiveByDriverID retrieves the ACTIVE trip for a driver.
	// Returns nil if no active trip exists.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error)

	// GetActiveByVehicleID retrieves the ACTIVE trip for a vehicle.
	// Returns nil if no active trip exists.
	GetActiveByVehicleID(ctx context.Context, vehicleID string) (*domain.Trip, error)
}
