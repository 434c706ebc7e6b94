package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pub/Sub channels.
const (
	SystemChannel     = "notifications:system"
	SimulatorChannel  = "notifications:simulator"
	userChannelPrefix = "notifications:user:"
)

// UserChannel returns the channel carrying direct messages for username.
func UserChannel(username string) string {
	return userChannelPrefix + username
}

// UserMessage is the envelope published on a user channel.
type UserMessage struct {
	Username string    `json:"username"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

// SimulatorStatus is the envelope published on the simulator channel.
type SimulatorStatus struct {
	Running bool      `json:"running"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier publishes notifications to Redis Pub/Sub channels.
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// BroadcastSystemStatus publishes a structured payload to every subscriber.
func (n *Notifier) BroadcastSystemStatus(ctx context.Context, payload map[string]any) error {
	return n.publish(ctx, SystemChannel, payload)
}

// SendToUser publishes a text message for one user.
func (n *Notifier) SendToUser(ctx context.Context, username, message string) error {
	return n.publish(ctx, UserChannel(username), UserMessage{
		Username: username,
		Message:  message,
		SentAt:   time.Now(),
	})
}

// BroadcastSimulatorStatus publishes the simulator running flag.
func (n *Notifier) BroadcastSimulatorStatus(ctx context.Context, running bool) error {
	return n.publish(ctx, SimulatorChannel, SimulatorStatus{
		Running: running,
		SentAt:  time.Now(),
	})
}

func (n *Notifier) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, channel, data).Err()
}
