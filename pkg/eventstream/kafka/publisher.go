// Package kafka implements the eventstream Publisher on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/adaptiveopslab/coachrelay/pkg/eventstream"
)

// DefaultTopic is the topic session events are published to when none is
// configured.
const DefaultTopic = "coachrelay.sessions"

// Publisher publishes session events to a Kafka topic, keyed by session id
// so one session's events land on one partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Publisher for the given brokers and topic. An
// empty topic applies DefaultTopic. The underlying writer dials lazily;
// broker availability is not checked here.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	return &Publisher{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkago.Hash{},
			// Session summaries are small and sporadic; batching only
			// delays them.
			BatchSize: 1,
		},
	}, nil
}

// PublishSession marshals the event and writes it to the topic.
func (p *Publisher) PublishSession(ctx context.Context, event *eventstream.SessionCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: encoding session event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Session.SessionID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publishing session event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
