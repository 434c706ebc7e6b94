package repository

import (
	"context"

	"carmonitor/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// Update saves the driver's mutable fields.
	Update(ctx context.Context, driver *domain.Driver) error
}
