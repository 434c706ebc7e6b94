package repository

import (
	"context"

	"carmonitor/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// ListByStatus retrieves all vehicles in the given operational status.
	ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error)

	// Update saves the vehicle's mutable fields.
	Update(ctx context.Context, vehicle *domain.Vehicle) error
}
