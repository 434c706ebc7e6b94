package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carmonitor/internal/domain"
	"carmonitor/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// NewVehicleRepositoryWithTx creates a vehicle repository using a transaction.
func NewVehicleRepositoryWithTx(tx *sql.Tx) *VehicleRepository {
	return &VehicleRepository{q: tx}
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `
		SELECT id, COALESCE(car_number, ''), COALESCE(car_model, ''), status, driver_id, updated_at
		FROM cars WHERE id = $1
	`

	vehicle, err := scanVehicle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return vehicle, nil
}

// ListByStatus retrieves all vehicles in the given operational status.
func (r *VehicleRepository) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error) {
	query := `
		SELECT id, COALESCE(car_number, ''), COALESCE(car_model, ''), status, driver_id, updated_at
		FROM cars WHERE status = $1 AND is_active = TRUE
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]*domain.Vehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, rows.Err()
}

// Update saves the vehicle's status and driver assignment.
func (r *VehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `UPDATE cars SET status = $1, driver_id = $2, updated_at = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query,
		vehicle.Status,
		nullString(vehicle.AssignedDriverID),
		vehicle.UpdatedAt,
		vehicle.ID,
	)
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

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	var driverID sql.NullString
	if err := row.Scan(
		&vehicle.ID,
		&vehicle.Number,
		&vehicle.Model,
		&vehicle.Status,
		&driverID,
		&vehicle.UpdatedAt,
	); err != nil {
		return nil, err
	}
	vehicle.AssignedDriverID = driverID.String
	return &vehicle, nil
}

// Ensure VehicleRepository implements repository.VehicleRepository.
var _ repository.VehicleRepository = (*VehicleRepository)(nil)
