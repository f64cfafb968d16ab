// Package events journals domain events to Kafka. The journal is a direct
// call from the component that performed the write, never an ambient bus,
// and it is always best-effort: a journal failure must not fail the
// operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/pkg/kafka"
)

// Event names.
const (
	EventMessageCreated        = "message_created"
	EventUserOnline            = "user_online"
	EventUserOffline           = "user_offline"
	EventFriendRequestSent     = "friend_request_sent"
	EventFriendRequestResolved = "friend_request_resolved"
	EventGroupCreated          = "group_created"
)

// Event is one journal record.
type Event struct {
	Name       string    `json:"name"`
	UserID     string    `json:"user_id,omitempty"`
	MessageID  int64     `json:"message_id,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher records domain events. Implementations must never block the
// caller beyond the producer's own timeouts.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// KafkaPublisher journals events to a Kafka topic keyed by user ID.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("event", event.Name), zap.Error(err))
		return
	}
	var key []byte
	if event.UserID != "" {
		key = []byte(event.UserID)
	}
	if _, _, err := p.producer.Produce(ctx, p.topic, key, value); err != nil {
		p.logger.Warn("failed to journal event",
			zap.String("event", event.Name),
			zap.Error(err))
	}
}

// NopPublisher drops events; used when Kafka is unavailable so the server
// keeps running in degraded mode.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
