package mqttsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"carmonitor/internal/domain"
)

const defaultPublishTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends telemetry samples to an MQTT broker, one topic per vehicle.
type Publisher struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewPublisher creates a new Publisher.
func NewPublisher(client Client, topicPrefix string, qos byte) *Publisher {
	return &Publisher{
		client:  client,
		prefix:  topicPrefix,
		qos:     qos,
		timeout: defaultPublishTimeout,
	}
}

// Topic returns the telemetry topic for a vehicle.
func Topic(prefix, vehicleID string) string {
	return fmt.Sprintf("%s/vehicles/%s/telemetry", prefix, vehicleID)
}

// Publish sends the sample and waits for the broker acknowledgement, the
// publish timeout or ctx, whichever comes first.
func (p *Publisher) Publish(ctx context.Context, vehicleID string, sample domain.TelemetrySample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	token := p.client.Publish(Topic(p.prefix, vehicleID), p.qos, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
