package domain

import "time"

// TelemetrySample is one synthetic sensor reading for a vehicle on a trip.
type TelemetrySample struct {
	VehicleID   string    `json:"vehicle_id" bson:"vehicle_id"`
	TripID      string    `json:"trip_id" bson:"trip_id"`
	Speed       int       `json:"speed" bson:"speed"`             // km/h
	FuelLevel   int       `json:"fuel_level" bson:"fuel_level"`   // percent
	Temperature int       `json:"temperature" bson:"temperature"` // engine, Celsius
	Location    string    `json:"location" bson:"location"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}
