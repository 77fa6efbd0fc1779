package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vbonduro/mahrfyi/internal/events"
)

// Writer publishes submission events to a Kafka topic.
// It implements events.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) PublishSubmission(ctx context.Context, ev events.SubmissionCreated) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish submission event: %w", err)
	}
	w.logger.Debug("submission event published", "id", ev.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(ev events.SubmissionCreated) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize submission event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "created_at", Value: []byte(ev.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
