package simulator

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"carmonitor/internal/domain"
)

// MultiSink publishes each sample to every sink. A failing sink does not
// prevent delivery to the others; all failures are returned joined.
type MultiSink []Sink

// Publish implements Sink.
func (m MultiSink) Publish(ctx context.Context, vehicleID string, sample domain.TelemetrySample) error {
	var errs []error
	for i, s := range m {
		if err := s.Publish(ctx, vehicleID, sample); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes samples to the log. Used when no transport is configured.
type LogSink struct{}

// Publish implements Sink.
func (LogSink) Publish(ctx context.Context, vehicleID string, sample domain.TelemetrySample) error {
	log.WithFields(log.Fields{
		"vehicle_id":  vehicleID,
		"trip_id":     sample.TripID,
		"speed":       sample.Speed,
		"fuel_level":  sample.FuelLevel,
		"temperature": sample.Temperature,
		"location":    sample.Location,
	}).Info("Telemetry sample")
	return nil
}
