package kafka

import (
	"context"
	"encoding/json"

	"github.com/dailyyoga/cacheorch/cache"
)

const (
	// HeaderEventType carries the kind of event in every published message
	HeaderEventType = "event-type"
	// HeaderSource carries NotifierConfig.Source
	HeaderSource = "source"
	// HeaderStatus carries the status the cache moved to
	HeaderStatus = "status"

	// EventTypeStatusChanged is the event type of a settled refresh cycle
	EventTypeStatusChanged = "cache.status_changed"

	defaultSource = "cacheorch"
)

// EventNotifier publishes every cache event to a Kafka topic, keyed by cache
// name so that all events of one cache land on the same partition
type EventNotifier struct {
	producer Producer
	topic    string
	source   string
}

var _ cache.Notifier = (*EventNotifier)(nil)

// NewEventNotifier creates a notifier that publishes through p
func NewEventNotifier(p Producer, config *NotifierConfig) (*EventNotifier, error) {
	if p == nil {
		return nil, ErrInvalidConfig("producer is required")
	}
	if config == nil {
		return nil, ErrInvalidConfig("notifier config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	src := config.Source
	if src == "" {
		src = defaultSource
	}
	return &EventNotifier{producer: p, topic: config.Topic, source: src}, nil
}

// Notify implements cache.Notifier
func (n *EventNotifier) Notify(ctx context.Context, ev cache.Event) error {
	msg, err := n.message(ev)
	if err != nil {
		return err
	}
	return n.producer.Produce(ctx, msg)
}

func (n *EventNotifier) message(ev cache.Event) (*Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, ErrEncodeEvent(err)
	}
	topic := n.topic
	return &Message{
		Value:     value,
		Key:       []byte(ev.Cache),
		Timestamp: ev.At,
		TopicPartition: TopicPartition{
			Topic:     &topic,
			Partition: PartitionAny,
		},
		Headers: []Header{
			{Key: HeaderEventType, Value: []byte(EventTypeStatusChanged)},
			{Key: HeaderSource, Value: []byte(n.source)},
			{Key: HeaderStatus, Value: []byte(ev.To.String())},
		},
	}, nil
}
