package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"carmonitor/internal/domain"
	"carmonitor/internal/redis"
	"carmonitor/internal/repository"
)

// TripService handles trip lifecycle operations.
type TripService struct {
	transactor  repository.Transactor
	tripRepo    repository.TripRepository
	vehicleRepo repository.VehicleRepository
	driverRepo  repository.DriverRepository
	costs       *TripCostService
	locker      *entityLocker
	notifier    Notifier
	now         func() time.Time
}

// NewTripService creates a new TripService.
func NewTripService(
	transactor repository.Transactor,
	tripRepo repository.TripRepository,
	vehicleRepo repository.VehicleRepository,
	driverRepo repository.DriverRepository,
	costs *TripCostService,
	lockStore redis.LockStoreInterface,
	notifier Notifier,
) *TripService {
	return &TripService{
		transactor:  transactor,
		tripRepo:    tripRepo,
		vehicleRepo: vehicleRepo,
		driverRepo:  driverRepo,
		costs:       costs,
		locker:      newEntityLocker(lockStore),
		notifier:    notifier,
		now:         time.Now,
	}
}

// RequestTripRequest contains the parameters for requesting a trip.
type RequestTripRequest struct {
	DriverID      string
	StartLocation string
	EndLocation   string
	VehicleID     string // Optional
}

// RequestTrip records a new trip request for a driver.
func (s *TripService) RequestTrip(ctx context.Context, req RequestTripRequest) (*domain.Trip, error) {
	driverID := strings.TrimSpace(req.DriverID)
	start := strings.TrimSpace(req.StartLocation)
	end := strings.TrimSpace(req.EndLocation)

	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if start == "" || end == "" {
		return nil, ErrInvalidLocation
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, lookupError(err, ErrDriverNotFound, "driver")
	}

	trip := domain.NewTrip(uuid.NewString(), driver.ID, start, end, s.now())

	cost, found, err := s.costs.Lookup(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if found {
		trip.SetBaseCost(cost)
	}

	// An unknown vehicle on a request is ignored; the approver can attach one later.
	if vehicleID := strings.TrimSpace(req.VehicleID); vehicleID != "" {
		vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
		switch {
		case err == nil:
			trip.VehicleID = vehicle.ID
		case errors.Is(err, repository.ErrNotFound):
			log.WithFields(log.Fields{
				"driver_id":  driver.ID,
				"vehicle_id": vehicleID,
			}).Debug("Requested vehicle not found, ignoring")
		default:
			return nil, fmt.Errorf("get vehicle: %w", err)
		}
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	log.WithFields(log.Fields{
		"trip_id":   trip.ID,
		"driver_id": trip.DriverID,
		"start":     trip.StartLocation,
		"end":       trip.EndLocation,
		"base_cost": trip.BaseCost.String(),
	}).Info("Trip requested")

	return trip, nil
}

// ApproveAndStart approves a requested trip and immediately starts it, optionally
// attaching a vehicle. The trip, vehicle and driver are updated in one transaction.
func (s *TripService) ApproveAndStart(ctx context.Context, tripID, vehicleID string) (*domain.Trip, error) {
	tripID = strings.TrimSpace(tripID)
	vehicleID = strings.TrimSpace(vehicleID)

	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	current, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if vehicleID != "" {
		if _, err := s.vehicleRepo.GetByID(ctx, vehicleID); err != nil {
			return nil, lookupError(err, ErrVehicleNotFound, "vehicle")
		}
	} else {
		vehicleID = current.VehicleID
	}

	release, err := s.locker.acquire(ctx,
		lockKey(redis.TripLockPrefix, tripID),
		lockKey(redis.DriverLockPrefix, current.DriverID),
		lockKey(redis.VehicleLockPrefix, vehicleID),
	)
	if err != nil {
		return nil, err
	}
	defer release()

	var trip *domain.Trip
	err = s.transactor.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		t, err := repos.Trips.GetByID(ctx, tripID)
		if err != nil {
			return lookupError(err, ErrTripNotFound, "trip")
		}

		now := s.now()
		if err := t.Approve(now); err != nil {
			return err
		}
		if err := t.Start(now); err != nil {
			return err
		}

		active, err := repos.Trips.GetActiveByDriverID(ctx, t.DriverID)
		if err != nil {
			return fmt.Errorf("get active trip for driver: %w", err)
		}
		if active != nil && active.ID != t.ID {
			return ErrDriverHasActiveTrip
		}

		if vehicleID != "" {
			if err := s.attachVehicle(ctx, repos, t, vehicleID, now); err != nil {
				return err
			}
		}

		if err := repos.Trips.Update(ctx, t); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}

		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trip_id":    trip.ID,
		"driver_id":  trip.DriverID,
		"vehicle_id": trip.VehicleID,
	}).Info("Trip approved and started")

	s.notifier.NotifyTripStarted(ctx, trip)

	return trip, nil
}

func (s *TripService) attachVehicle(ctx context.Context, repos repository.Repositories, trip *domain.Trip, vehicleID string, now time.Time) error {
	vehicle, err := repos.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return lookupError(err, ErrVehicleNotFound, "vehicle")
	}

	active, err := repos.Trips.GetActiveByVehicleID(ctx, vehicle.ID)
	if err != nil {
		return fmt.Errorf("get active trip for vehicle: %w", err)
	}
	if active != nil && active.ID != trip.ID {
		return ErrVehicleHasActiveTrip
	}

	driver, err := repos.Drivers.GetByID(ctx, trip.DriverID)
	if err != nil {
		return lookupError(err, ErrDriverNotFound, "driver")
	}

	trip.VehicleID = vehicle.ID
	driver.AssignVehicle(vehicle.ID, now)
	vehicle.Activate(driver.ID, now)

	if err := repos.Drivers.Update(ctx, driver); err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	if err := repos.Vehicles.Update(ctx, vehicle); err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	return nil
}

// Reject rejects a requested trip and tells the driver why.
func (s *TripService) Reject(ctx context.Context, tripID, reason string) (*domain.Trip, error) {
	tripID = strings.TrimSpace(tripID)
	reason = strings.TrimSpace(reason)

	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	release, err := s.locker.acquire(ctx, lockKey(redis.TripLockPrefix, tripID))
	if err != nil {
		return nil, err
	}
	defer release()

	var trip *domain.Trip
	err = s.transactor.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		t, err := repos.Trips.GetByID(ctx, tripID)
		if err != nil {
			return lookupError(err, ErrTripNotFound, "trip")
		}

		if err := t.Reject(s.now()); err != nil {
			return err
		}

		if err := repos.Trips.Update(ctx, t); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}

		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trip_id":   trip.ID,
		"driver_id": trip.DriverID,
		"reason":    reason,
	}).Info("Trip rejected")

	var username string
	if driver, err := s.driverRepo.GetByID(ctx, trip.DriverID); err != nil {
		log.WithError(err).WithField("driver_id", trip.DriverID).Warn("Failed to load driver for rejection message")
	} else {
		username = driver.Username
	}
	s.notifier.NotifyTripRejected(ctx, trip, username, reason)

	return trip, nil
}

// Stop completes an active trip and releases its driver and vehicle.
func (s *TripService) Stop(ctx context.Context, tripID string) (*domain.Trip, error) {
	tripID = strings.TrimSpace(tripID)

	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	current, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.acquire(ctx,
		lockKey(redis.TripLockPrefix, tripID),
		lockKey(redis.DriverLockPrefix, current.DriverID),
		lockKey(redis.VehicleLockPrefix, current.VehicleID),
	)
	if err != nil {
		return nil, err
	}
	defer release()

	var trip *domain.Trip
	err = s.transactor.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		t, err := repos.Trips.GetByID(ctx, tripID)
		if err != nil {
			return lookupError(err, ErrTripNotFound, "trip")
		}

		now := s.now()
		if err := t.Complete(now); err != nil {
			return err
		}

		driver, err := repos.Drivers.GetByID(ctx, t.DriverID)
		if err != nil {
			return lookupError(err, ErrDriverNotFound, "driver")
		}
		driver.Unassign(now)
		if err := repos.Drivers.Update(ctx, driver); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}

		if t.HasVehicle() {
			vehicle, err := repos.Vehicles.GetByID(ctx, t.VehicleID)
			if err != nil {
				return lookupError(err, ErrVehicleNotFound, "vehicle")
			}
			vehicle.Release(now)
			if err := repos.Vehicles.Update(ctx, vehicle); err != nil {
				return fmt.Errorf("update vehicle: %w", err)
			}
		}

		if err := repos.Trips.Update(ctx, t); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}

		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trip_id":    trip.ID,
		"driver_id":  trip.DriverID,
		"vehicle_id": trip.VehicleID,
		"total_cost": trip.TotalCost.String(),
	}).Info("Trip completed")

	s.notifier.NotifyTripCompleted(ctx, trip)

	return trip, nil
}

// AddFine adds amount to every ACTIVE trip of the vehicle and returns the updated trips.
func (s *TripService) AddFine(ctx context.Context, vehicleID string, amount int64) ([]*domain.Trip, error) {
	vehicleID = strings.TrimSpace(vehicleID)

	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	if amount < 0 {
		return nil, ErrInvalidFineAmount
	}

	release, err := s.locker.acquire(ctx, lockKey(redis.VehicleLockPrefix, vehicleID))
	if err != nil {
		return nil, err
	}
	defer release()

	fine := decimal.NewFromInt(amount)
	fined := make([]*domain.Trip, 0)

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		trips, err := repos.Trips.ListActiveByVehicleID(ctx, vehicleID)
		if err != nil {
			return fmt.Errorf("list active trips: %w", err)
		}

		now := s.now()
		for _, t := range trips {
			t.AddFine(fine, now)
			if err := repos.Trips.Update(ctx, t); err != nil {
				return fmt.Errorf("update trip %s: %w", t.ID, err)
			}
			fined = append(fined, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"amount":     amount,
		"trips":      len(fined),
	}).Info("Fine applied")

	return fined, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, lookupError(err, ErrTripNotFound, "trip")
	}
	return trip, nil
}

// ListDriverTrips returns the trips of a driver.
func (s *TripService) ListDriverTrips(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	trips, err := s.tripRepo.ListByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return nonNil(trips), nil
}

// ListTripsByStatus returns all trips in the given status.
func (s *TripService) ListTripsByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	if !status.Valid() {
		return nil, ErrInvalidTripStatus
	}

	trips, err := s.tripRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return nonNil(trips), nil
}

// GetActiveTripForDriver returns the driver's ACTIVE trip, or nil when there is none.
func (s *TripService) GetActiveTripForDriver(ctx context.Context, driverID string) (*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.tripRepo.GetActiveByDriverID(ctx, driverID)
}

// GetActiveTripForVehicle returns the vehicle's ACTIVE trip, or nil when there is none.
func (s *TripService) GetActiveTripForVehicle(ctx context.Context, vehicleID string) (*domain.Trip, error) {
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	return s.tripRepo.GetActiveByVehicleID(ctx, vehicleID)
}

// lookupError maps repository.ErrNotFound to the entity's sentinel.
func lookupError(err, notFound error, entity string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("get %s: %w", entity, err)
}

func nonNil(trips []*domain.Trip) []*domain.Trip {
	if trips == nil {
		return []*domain.Trip{}
	}
	return trips
}
