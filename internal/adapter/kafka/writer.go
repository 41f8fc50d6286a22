package kafka

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces resolved events to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
// Messages are keyed by event id, so Hash keeps revisions of one event on
// one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the events in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.QuakeEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("published events", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage converts a QuakeEvent into a Kafka message with headers
// sorted by key.
func serializeToMessage(event domain.QuakeEvent) (kafkago.Message, error) {
	out, err := domain.SerializeQuakeEvent(event)
	if err != nil {
		return kafkago.Message{}, err
	}
	headers := make([]kafkago.Header, 0, len(out.Headers))
	for _, key := range []string{"event_id", "magnitude_type", "processed_at"} {
		if v, ok := out.Headers[key]; ok {
			headers = append(headers, kafkago.Header{Key: key, Value: []byte(v)})
		}
	}
	return kafkago.Message{
		Key:     out.Key,
		Value:   out.Value,
		Headers: headers,
	}, nil
}
