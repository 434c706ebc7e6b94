package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carmonitor/internal/domain"
	"carmonitor/internal/repository"
)

// TripCostRepository is a PostgreSQL implementation of repository.TripCostRepository.
// Uniqueness of (start_point, end_point) is enforced by the uk_trip_cost_start_end constraint.
type TripCostRepository struct {
	q Querier
}

// NewTripCostRepository creates a new PostgreSQL trip cost repository.
func NewTripCostRepository(db *sql.DB) *TripCostRepository {
	return &TripCostRepository{q: db}
}

// FindActive retrieves the active cost for an ordered (start, end) pair.
// Returns nil if the pair has no active cost.
func (r *TripCostRepository) FindActive(ctx context.Context, start, end string) (*domain.TripCost, error) {
	query := `
		SELECT id, start_point, end_point, base_cost, is_active, creation_date, last_update_on
		FROM trip_costs
		WHERE start_point = $1 AND end_point = $2 AND is_active = TRUE
	`

	cost, err := scanTripCost(r.q.QueryRowContext(ctx, query, start, end))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cost, nil
}

// Save inserts a cost unless the pair already has a row.
func (r *TripCostRepository) Save(ctx context.Context, cost *domain.TripCost) (bool, error) {
	query := `
		INSERT INTO trip_costs (id, start_point, end_point, base_cost, is_active, creation_date, last_update_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (start_point, end_point) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		cost.ID,
		cost.StartLocation,
		cost.EndLocation,
		cost.BaseCost,
		cost.IsActive,
		cost.CreatedAt,
		cost.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ListActive retrieves every active cost.
func (r *TripCostRepository) ListActive(ctx context.Context) ([]*domain.TripCost, error) {
	query := `
		SELECT id, start_point, end_point, base_cost, is_active, creation_date, last_update_on
		FROM trip_costs
		WHERE is_active = TRUE
		ORDER BY start_point, end_point
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	costs := make([]*domain.TripCost, 0)
	for rows.Next() {
		cost, err := scanTripCost(rows)
		if err != nil {
			return nil, err
		}
		costs = append(costs, cost)
	}
	return costs, rows.Err()
}

func scanTripCost(row rowScanner) (*domain.TripCost, error) {
	var cost domain.TripCost
	var updatedAt sql.NullTime
	if err := row.Scan(
		&cost.ID,
		&cost.StartLocation,
		&cost.EndLocation,
		&cost.BaseCost,
		&cost.IsActive,
		&cost.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	cost.UpdatedAt = timeOrZero(updatedAt)
	return &cost, nil
}

// Ensure TripCostRepository implements repository.TripCostRepository.
var _ repository.TripCostRepository = (*TripCostRepository)(nil)
