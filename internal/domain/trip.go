package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusRequested TripStatus = "REQUESTED"
	TripStatusApproved  TripStatus = "APPROVED"
	TripStatusActive    TripStatus = "ACTIVE"
	TripStatusRejected  TripStatus = "REJECTED"
	TripStatusCompleted TripStatus = "COMPLETED"
)

// tripTransitions lists the statuses reachable from each status.
// Terminal statuses have no entry.
var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusRequested: {TripStatusApproved, TripStatusRejected},
	TripStatusApproved:  {TripStatusActive, TripStatusRejected},
	TripStatusActive:    {TripStatusCompleted},
}

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusRequested, TripStatusApproved, TripStatusActive, TripStatusRejected, TripStatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition is defined out of s.
func (s TripStatus) Terminal() bool {
	return s == TripStatusRejected || s == TripStatusCompleted
}

// CanTransitionTo reports whether the state table allows s -> next.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Trip represents one requested, active or completed journey.
type Trip struct {
	ID             string
	DriverID       string
	VehicleID      string // Empty until a vehicle is attached
	StartLocation  string
	EndLocation    string
	Status         TripStatus
	RequestedAt    time.Time
	ApprovedAt     time.Time
	StartedAt      time.Time
	EndedAt        time.Time
	BaseCost       decimal.Decimal
	AdditionalFine decimal.Decimal
	TotalCost      decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTrip creates a trip in REQUESTED status with zero cost.
func NewTrip(id, driverID, start, end string, now time.Time) *Trip {
	return &Trip{
		ID:             id,
		DriverID:       driverID,
		StartLocation:  start,
		EndLocation:    end,
		Status:         TripStatusRequested,
		RequestedAt:    now,
		BaseCost:       decimal.Zero,
		AdditionalFine: decimal.Zero,
		TotalCost:      decimal.Zero,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasVehicle reports whether a vehicle is attached to the trip.
func (t *Trip) HasVehicle() bool {
	return t.VehicleID != ""
}

// SetBaseCost sets the base cost and recomputes the total.
func (t *Trip) SetBaseCost(cost decimal.Decimal) {
	t.BaseCost = cost
	t.recomputeTotal()
}

// AddFine accumulates a fine on top of any previous fines and recomputes the total.
func (t *Trip) AddFine(amount decimal.Decimal, now time.Time) {
	t.AdditionalFine = t.AdditionalFine.Add(amount)
	t.recomputeTotal()
	t.UpdatedAt = now
}

func (t *Trip) recomputeTotal() {
	t.TotalCost = t.BaseCost.Add(t.AdditionalFine)
}

// Approve moves a REQUESTED trip to APPROVED. An already APPROVED trip is left as is.
func (t *Trip) Approve(now time.Time) error {
	if t.Status == TripStatusApproved {
		return nil
	}
	if err := t.transition(TripStatusApproved, now); err != nil {
		return err
	}
	t.ApprovedAt = now
	return nil
}

// Start moves an APPROVED trip to ACTIVE.
func (t *Trip) Start(now time.Time) error {
	if err := t.transition(TripStatusActive, now); err != nil {
		return err
	}
	t.StartedAt = now
	return nil
}

// Reject moves a REQUESTED or APPROVED trip to REJECTED.
func (t *Trip) Reject(now time.Time) error {
	if err := t.transition(TripStatusRejected, now); err != nil {
		return err
	}
	t.EndedAt = now
	return nil
}

// Complete moves an ACTIVE trip to COMPLETED.
func (t *Trip) Complete(now time.Time) error {
	if err := t.transition(TripStatusCompleted, now); err != nil {
		return err
	}
	t.EndedAt = now
	return nil
}

func (t *Trip) transition(next TripStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}
