package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/svyazapp/backend/pkg/model"
	"github.com/svyazapp/backend/pkg/store"
)

// Consumer tails the persisted-message stream and maintains the conversation
// read model: summary rows for both participants and the receiver's unread
// counter. The relay already made the message durable; this path is eventually
// consistent by design.
type Consumer struct {
	reader        *kafka.Reader
	conversations *store.Conversations
	log           *slog.Logger
}

func NewConsumer(reader *kafka.Reader, conversations *store.Conversations, log *slog.Logger) *Consumer {
	return &Consumer{reader: reader, conversations: conversations, log: log}
}

// Consume processes events until ctx is cancelled. Transient read errors are
// retried with a short backoff; a malformed event is logged and skipped so
// one bad record cannot wedge the partition.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("read event", "err", err)
			time.Sleep(time.Second)
			continue
		}

		var msg model.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Error("unmarshal event", "err", err, "offset", m.Offset)
			continue
		}
		if msg.SenderID == "" || msg.ReceiverID == "" {
			c.log.Error("event missing participants", "offset", m.Offset)
			continue
		}

		if err := c.conversations.Touch(ctx, msg.SenderID, msg.ReceiverID, msg.CreatedAt); err != nil {
			c.log.Error("update conversation", "err", err, "id", msg.ID)
			continue
		}
		c.log.Debug("conversation updated", "id", msg.ID, "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
