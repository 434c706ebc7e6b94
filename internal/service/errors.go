package service

import (
	"errors"
	"fmt"

	"carmonitor/internal/repository"
)

var (
	// ErrTripNotFound is returned when the referenced trip does not exist.
	ErrTripNotFound = fmt.Errorf("trip: %w", repository.ErrNotFound)

	// ErrDriverNotFound is returned when the referenced driver does not exist.
	ErrDriverNotFound = fmt.Errorf("driver: %w", repository.ErrNotFound)

	// ErrVehicleNotFound is returned when the referenced vehicle does not exist.
	ErrVehicleNotFound = fmt.Errorf("vehicle: %w", repository.ErrNotFound)

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidLocation is returned when a start or end location is blank.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidFineAmount is returned when a fine is negative.
	ErrInvalidFineAmount = errors.New("invalid fine amount")

	// ErrInvalidTripStatus is returned when a status filter is not a known trip status.
	ErrInvalidTripStatus = errors.New("invalid trip status")

	// ErrInvalidCost is returned when a trip cost is not positive.
	ErrInvalidCost = errors.New("invalid trip cost")

	// ErrVehicleHasActiveTrip is returned when the vehicle is already on an active trip.
	ErrVehicleHasActiveTrip = errors.New("vehicle already has an active trip")

	// ErrDriverHasActiveTrip is returned when driver already has an active trip.
	ErrDriverHasActiveTrip = errors.New("driver already has an active trip")

	// ErrEntityBusy is returned when a trip, driver or vehicle lock could not be obtained in time.
	ErrEntityBusy = errors.New("entity is locked by another operation")

	// ErrTripCostExists is returned when an active cost already exists for the route.
	ErrTripCostExists = errors.New("trip cost already exists for route")
)
