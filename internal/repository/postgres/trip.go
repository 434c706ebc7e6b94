package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carmonitor/internal/domain"
	"carmonitor/internal/repository"
)

const tripColumns = `id, driver_id, vehicle_id, start_point, end_point, status,
	requested_at, approved_at, started_at, ended_at,
	base_cost, additional_fine, total_cost, is_active, created_at, updated_at`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.DriverID,
		nullString(trip.VehicleID),
		trip.StartLocation,
		trip.EndLocation,
		trip.Status,
		nullTime(trip.RequestedAt),
		nullTime(trip.ApprovedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.EndedAt),
		trip.BaseCost,
		trip.AdditionalFine,
		trip.TotalCost,
		trip.IsActive,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET vehicle_id = $1, status = $2, approved_at = $3, started_at = $4, ended_at = $5,
			base_cost = $6, additional_fine = $7, total_cost = $8, is_active = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(trip.VehicleID),
		trip.Status,
		nullTime(trip.ApprovedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.EndedAt),
		trip.BaseCost,
		trip.AdditionalFine,
		trip.TotalCost,
		trip.IsActive,
		trip.UpdatedAt,
		trip.ID,
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

// ListByDriverID retrieves the non-deleted trips of a driver, newest first.
func (r *TripRepository) ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE driver_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC`

	return r.list(ctx, query, driverID)
}

// ListByStatus retrieves all trips in the given status, newest first.
func (r *TripRepository) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE status = $1
		ORDER BY created_at DESC`

	return r.list(ctx, query, status)
}

// ListActiveByVehicleID retrieves every ACTIVE trip of a vehicle.
func (r *TripRepository) ListActiveByVehicleID(ctx context.Context, vehicleID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE vehicle_id = $1 AND status = $2
		ORDER BY started_at`

	return r.list(ctx, query, vehicleID, domain.TripStatusActive)
}

// GetActiveByDriverID retrieves the ACTIVE trip for a driver.
// Returns nil if no active trip exists.
func (r *TripRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE driver_id = $1 AND status = $2
		LIMIT 1`

	return r.first(ctx, query, driverID, domain.TripStatusActive)
}

// GetActiveByVehicleID retrieves the ACTIVE trip for a vehicle.
// Returns nil if no active trip exists.
func (r *TripRepository) GetActiveByVehicleID(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE vehicle_id = $1 AND status = $2
		LIMIT 1`

	return r.first(ctx, query, vehicleID, domain.TripStatusActive)
}

func (r *TripRepository) first(ctx context.Context, query string, args ...any) (*domain.Trip, error) {
	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

func (r *TripRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Trip, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := make([]*domain.Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var vehicleID sql.NullString
	var requestedAt, approvedAt, startedAt, endedAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.DriverID,
		&vehicleID,
		&trip.StartLocation,
		&trip.EndLocation,
		&trip.Status,
		&requestedAt,
		&approvedAt,
		&startedAt,
		&endedAt,
		&trip.BaseCost,
		&trip.AdditionalFine,
		&trip.TotalCost,
		&trip.IsActive,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.VehicleID = vehicleID.String
	trip.RequestedAt = timeOrZero(requestedAt)
	trip.ApprovedAt = timeOrZero(approvedAt)
	trip.StartedAt = timeOrZero(startedAt)
	trip.EndedAt = timeOrZero(endedAt)

	return &trip, nil
}

func timeOrZero(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
