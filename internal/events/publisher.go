package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// PublisherConfig holds configuration for the event publisher.
type PublisherConfig struct {
	KafkaBrokers []string
	Topic        string
}

// WatermillPublisher publishes events as JSON watermill messages on one topic.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	log       zerolog.Logger
}

// NewPublisher returns a Kafka publisher when brokers are configured and an
// in-process gochannel otherwise. The gochannel is returned as well so that
// callers may subscribe to it; it is nil for Kafka.
func NewPublisher(cfg PublisherConfig, log zerolog.Logger) (*WatermillPublisher, *gochannel.GoChannel, error) {
	log = log.With().Str("component", "events").Logger()
	adapter := NewLoggerAdapter(log)

	if len(cfg.KafkaBrokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, adapter)
		log.Info().Str("topic", cfg.Topic).Msg("Publishing events in-process")
		return &WatermillPublisher{publisher: ch, topic: cfg.Topic, log: log}, ch, nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, adapter)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.Topic).Msg("Publishing events to Kafka")
	return &WatermillPublisher{publisher: pub, topic: cfg.Topic, log: log}, nil, nil
}

// NewWatermillPublisher wraps an existing watermill publisher.
func NewWatermillPublisher(pub message.Publisher, topic string, log zerolog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: pub,
		topic:     topic,
		log:       log.With().Str("component", "events").Logger(),
	}
}

// Publish sends one event.
func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.log.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("Failed to publish event")
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Msg("Published event")
	return nil
}

// Close releases the underlying publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// LogConsumer logs every event received on a topic until ctx ends.
func LogConsumer(ctx context.Context, sub message.Subscriber, topic string, log zerolog.Logger) error {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log = log.With().Str("component", "event_log").Logger()
	go func() {
		for msg := range messages {
			log.Info().
				Str("event_id", msg.UUID).
				Str("event_type", msg.Metadata.Get("event_type")).
				RawJSON("payload", msg.Payload).
				Msg("Event")
			msg.Ack()
		}
	}()
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, *Event) error { return nil }
func (Nop) Close() error                          { return nil }
