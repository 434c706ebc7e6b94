package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripCost is the base price for a directed (start, end) pair.
type TripCost struct {
	ID            string
	StartLocation string
	EndLocation   string
	BaseCost      decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Waypoints is the fixed set of named locations used for route pricing and
// simulated vehicle positions.
var Waypoints = []string{
	"Shivajinagar, Pune",
	"Kothrud, Pune",
	"Hinjewadi, Pune",
	"Viman Nagar, Pune",
	"Kalyani Nagar, Pune",
}

// WaypointIndex returns the position of name in Waypoints, or -1.
func WaypointIndex(name string) int {
	for i, w := range Waypoints {
		if w == name {
			return i
		}
	}
	return -1
}
