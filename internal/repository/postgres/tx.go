package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carmonitor/internal/repository"
)

// Transactor runs units of work against PostgreSQL with tx-scoped repositories.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx begins a transaction, hands fn repositories bound to it, and commits
// when fn succeeds.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	repos := repository.Repositories{
		Trips:    NewTripRepositoryWithTx(tx),
		Vehicles: NewVehicleRepositoryWithTx(tx),
		Drivers:  NewDriverRepositoryWithTx(tx),
	}

	if err = fn(ctx, repos); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ensure Transactor implements repository.Transactor.
var _ repository.Transactor = (*Transactor)(nil)
