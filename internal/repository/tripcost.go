package repository

import (
	"context"

	"carmonitor/internal/domain"
)

// TripCostRepository defines the persistence operations for the cost table.
type TripCostRepository interface {
	// FindActive retrieves the active cost for an ordered (start, end) pair.
	// Returns nil if the pair has no active cost.
	FindActive(ctx context.Context, start, end string) (*domain.TripCost, error)

	// Save inserts a cost. An existing active row for the same pair is never
	// overwritten; inserted reports whether a row was written.
	Save(ctx context.Context, cost *domain.TripCost) (inserted bool, err error)

	// ListActive retrieves every active cost.
	ListActive(ctx context.Context) ([]*domain.TripCost, error)
}
