package domain

import "time"

// Driver represents a driver in the system.
type Driver struct {
	ID                string
	Name              string
	Username          string // User identity for direct notifications
	AssignedVehicleID string // Empty when no vehicle is assigned
	UpdatedAt         time.Time
}

// AssignVehicle records the vehicle the driver is using for the current trip.
func (d *Driver) AssignVehicle(vehicleID string, now time.Time) {
	d.AssignedVehicleID = vehicleID
	d.UpdatedAt = now
}

// Unassign clears the driver's vehicle assignment.
func (d *Driver) Unassign(now time.Time) {
	d.AssignedVehicleID = ""
	d.UpdatedAt = now
}
