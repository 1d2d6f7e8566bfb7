// Package kafka announces pipeline outcomes (committed corpus builds,
// similarity results) as JSON messages through segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/logger"
)

// Event is one message. Key selects the partition; Value is encoded as
// JSON.
type Event struct {
	Topic string
	Key   string
	Value any
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Producer writes events to the topic each event names. One producer
// serves every topic of the pipeline.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer"),
	}
}

// Publish encodes event and writes it synchronously. The build id carried
// by ctx, if any, travels in the build-id header.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	if event.Topic == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "event has no topic")
	}
	msg, err := message(ctx, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", event.Topic, err)
	}
	p.logger.Debug("event published",
		"topic", event.Topic,
		"key", event.Key,
		"bytes", len(msg.Value),
	)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func message(ctx context.Context, event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event: %w", event.Topic, err)
	}
	headers := []kafka.Header{{Key: "content-type", Value: []byte("application/json")}}
	if id, ok := logger.BuildID(ctx); ok {
		headers = append(headers, kafka.Header{Key: "build-id", Value: []byte(id)})
	}
	return kafka.Message{
		Topic:   event.Topic,
		Key:     []byte(event.Key),
		Value:   value,
		Headers: headers,
	}, nil
}

// To stamps topic onto every event that does not name one.
func To(pub Publisher, topic string) Publisher {
	return topicPublisher{next: pub, topic: topic}
}

type topicPublisher struct {
	next  Publisher
	topic string
}

func (t topicPublisher) Publish(ctx context.Context, event Event) error {
	if event.Topic == "" {
		event.Topic = t.topic
	}
	return t.next.Publish(ctx, event)
}

// Discard drops every event; used when kafka.enabled is false.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
