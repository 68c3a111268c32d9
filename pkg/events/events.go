// Package events carries persisted-message events from the relay to the
// messaging service over Kafka. The relay publishes after the synchronous
// store write succeeds; consumers build read models (conversation summaries,
// unread counters) from the stream.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/svyazapp/backend/pkg/model"
)

// Publisher writes message events to the chat topic.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log,
	}
}

// PublishMessage emits one persisted message. Failures are logged and
// swallowed: the message is already durable, the read model catches up on the
// next event for the conversation or via backfill.
func (p *Publisher) PublishMessage(ctx context.Context, msg model.Message) {
	value, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("marshal message event", "err", err, "id", msg.ID)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.SenderID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.log.Error("publish message event", "err", err, "id", msg.ID)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NewReader builds the consumer-group reader used by the messaging service.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}
