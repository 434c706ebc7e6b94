package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carmonitor/internal/domain"
	"carmonitor/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `
		SELECT d.id, COALESCE(d.name, ''), COALESCE(u.username, ''), d.assigned_car_id, d.updated_at
		FROM drivers d
		LEFT JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`

	var driver domain.Driver
	var assignedVehicleID sql.NullString
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&driver.ID,
		&driver.Name,
		&driver.Username,
		&assignedVehicleID,
		&driver.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	driver.AssignedVehicleID = assignedVehicleID.String

	return &driver, nil
}

// Update saves the driver's vehicle assignment.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `UPDATE drivers SET assigned_car_id = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, nullString(driver.AssignedVehicleID), driver.UpdatedAt, driver.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
