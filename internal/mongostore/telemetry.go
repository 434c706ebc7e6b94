package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carmonitor/internal/domain"
)

// TelemetryCollection is the part of *mongo.Collection the archive needs.
type TelemetryCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// TelemetryArchive stores every generated sample as one document.
type TelemetryArchive struct {
	Collection TelemetryCollection
}

// NewTelemetryArchive creates a new TelemetryArchive.
func NewTelemetryArchive(collection TelemetryCollection) *TelemetryArchive {
	return &TelemetryArchive{Collection: collection}
}

// Publish inserts the sample.
func (a *TelemetryArchive) Publish(ctx context.Context, vehicleID string, sample domain.TelemetrySample) error {
	sample.VehicleID = vehicleID
	if _, err := a.Collection.InsertOne(ctx, sample); err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}
	return nil
}

// Ensure *mongo.Collection satisfies TelemetryCollection.
var _ TelemetryCollection = (*mongo.Collection)(nil)
