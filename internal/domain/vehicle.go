package domain

import "time"

// VehicleStatus represents the operational status of a vehicle.
type VehicleStatus string

const (
	VehicleStatusIdle        VehicleStatus = "IDLE"
	VehicleStatusActive      VehicleStatus = "ACTIVE"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID               string
	Number           string
	Model            string
	Status           VehicleStatus
	AssignedDriverID string // Empty when no driver is assigned
	UpdatedAt        time.Time
}

// Activate marks the vehicle ACTIVE and assigns it to the driver.
func (v *Vehicle) Activate(driverID string, now time.Time) {
	v.Status = VehicleStatusActive
	v.AssignedDriverID = driverID
	v.UpdatedAt = now
}

// Release returns the vehicle to IDLE with no assigned driver.
func (v *Vehicle) Release(now time.Time) {
	v.Status = VehicleStatusIdle
	v.AssignedDriverID = ""
	v.UpdatedAt = now
}
