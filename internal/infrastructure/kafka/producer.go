package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/room-sessions/internal/command"
	"github.com/segmentio/kafka-go"
)

const headerEventName = "event-name"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes room events, keyed by room id so one room's events keep
// their order within a partition.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, events []command.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		data, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", evt.Name, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(evt.RoomID),
			Value:   data,
			Time:    evt.Timestamp,
			Headers: []kafka.Header{{Key: headerEventName, Value: []byte(evt.Name)}},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d events: %w", len(msgs), err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
