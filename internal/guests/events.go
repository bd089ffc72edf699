package guests

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckinEvent is the message published when a guest's check-in state
// changes. Delivery is best effort, at least once, unordered.
type CheckinEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	GuestID   uuid.UUID `json:"guest_id"`
	GuestName string    `json:"guest_name"`
	CheckedIn bool      `json:"checked_in"`
	At        time.Time `json:"at"`
}

// Publisher fans out check-in changes to subscribed viewers.
type Publisher interface {
	PublishCheckin(ctx context.Context, event CheckinEvent) error
}

// RedisPublisher implements Publisher over Redis pub/sub, one channel per
// event.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher constructs a RedisPublisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Channel returns the pub/sub channel name for an event.
func Channel(eventID uuid.UUID) string {
	return "checkin:" + eventID.String()
}

// PublishCheckin sends the event to the per-event channel.
func (p *RedisPublisher) PublishCheckin(ctx context.Context, event CheckinEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel(event.EventID), payload).Err()
}

// Subscribe opens a subscription on the per-event channel for stream
// relays.
func (p *RedisPublisher) Subscribe(ctx context.Context, eventID uuid.UUID) *redis.PubSub {
	return p.client.Subscribe(ctx, Channel(eventID))
}

var _ Publisher = (*RedisPublisher)(nil)
