// Package kafka publishes lending events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/meridian/lending-engine/events"
)

const defaultTopic = "lending_events"

type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher targets the given brokers. An empty topic falls back to
// lending_events.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = defaultTopic
	}
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkago.LeastBytes{},
		},
	}
}

// Publish writes one event, keyed by org so per-org ordering is preserved
// across partitions.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.OrgID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
