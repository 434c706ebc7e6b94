package repository

import "context"

// Repositories groups the repositories that share one unit of work.
type Repositories struct {
	Trips    TripRepository
	Vehicles VehicleRepository
	Drivers  DriverRepository
}

// Transactor runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
