package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"carmonitor/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripStarted          NotificationType = "TRIP_STARTED"
	NotificationSimulatorTripStarted NotificationType = "SIMULATOR_TRIP_STARTED"
	NotificationTripCompleted        NotificationType = "TRIP_COMPLETED"
)

// NotificationGateway is the transport that delivers notifications.
type NotificationGateway interface {
	BroadcastSystemStatus(ctx context.Context, payload map[string]any) error
	SendToUser(ctx context.Context, username, message string) error
	BroadcastSimulatorStatus(ctx context.Context, running bool) error
}

// Notifier receives trip lifecycle events. Delivery is best effort.
type Notifier interface {
	NotifyTripStarted(ctx context.Context, trip *domain.Trip)
	NotifyTripRejected(ctx context.Context, trip *domain.Trip, username, reason string)
	NotifyTripCompleted(ctx context.Context, trip *domain.Trip)
}

// Notification represents a notification to be sent.
type Notification struct {
	Type      NotificationType
	Data      map[string]any
	CreatedAt time.Time
}

// NotificationService handles notification delivery. Failures are logged and
// never reach the caller.
type NotificationService struct {
	gateway NotificationGateway
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(gateway NotificationGateway) *NotificationService {
	return &NotificationService{gateway: gateway}
}

// NotifyTripStarted announces a started trip and, when a vehicle is attached,
// asks the simulator to begin generating telemetry for it.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, trip *domain.Trip) {
	s.broadcast(ctx, Notification{
		Type: NotificationTripStarted,
		Data: map[string]any{
			"tripId":   trip.ID,
			"driverId": trip.DriverID,
		},
		CreatedAt: time.Now(),
	})

	if !trip.HasVehicle() {
		return
	}

	s.broadcast(ctx, Notification{
		Type: NotificationSimulatorTripStarted,
		Data: map[string]any{
			"tripId":   trip.ID,
			"carId":    trip.VehicleID,
			"driverId": trip.DriverID,
			"message":  fmt.Sprintf("Start generating telemetry for trip %s and car %s", trip.ID, trip.VehicleID),
		},
		CreatedAt: time.Now(),
	})
}

// NotifyTripRejected sends the driver a direct rejection message.
func (s *NotificationService) NotifyTripRejected(ctx context.Context, trip *domain.Trip, username, reason string) {
	if username == "" {
		log.WithField("trip_id", trip.ID).Warn("Driver has no username, skipping rejection message")
		return
	}

	if err := s.gateway.SendToUser(ctx, username, RejectionMessage(reason)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"trip_id":  trip.ID,
			"username": username,
		}).Warn("Failed to send rejection message")
	}
}

// NotifyTripCompleted announces a completed trip.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip) {
	s.broadcast(ctx, Notification{
		Type: NotificationTripCompleted,
		Data: map[string]any{
			"tripId":   trip.ID,
			"driverId": trip.DriverID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifySimulatorStatus broadcasts the simulator running flag.
func (s *NotificationService) NotifySimulatorStatus(ctx context.Context, running bool) {
	if err := s.gateway.BroadcastSimulatorStatus(ctx, running); err != nil {
		log.WithError(err).WithField("running", running).Warn("Failed to broadcast simulator status")
	}
}

// RejectionMessage builds the text sent to a driver whose trip was rejected.
func RejectionMessage(reason string) string {
	msg := "Your trip request was rejected"
	if reason != "" {
		msg += ": " + reason
	}
	return msg
}

func (s *NotificationService) broadcast(ctx context.Context, notification Notification) {
	payload := make(map[string]any, len(notification.Data)+1)
	for k, v := range notification.Data {
		payload[k] = v
	}
	payload["type"] = string(notification.Type)

	if err := s.gateway.BroadcastSystemStatus(ctx, payload); err != nil {
		log.WithError(err).WithField("type", notification.Type).Warn("Failed to broadcast notification")
		return
	}

	log.WithFields(log.Fields{
		"type": notification.Type,
		"data": notification.Data,
	}).Debug("Notification sent")
}

// Ensure NotificationService implements Notifier.
var _ Notifier = (*NotificationService)(nil)
