package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes raw QuakeML documents from a Kafka topic as part of a
// consumer group. It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
// Offsets are committed explicitly through RawDocument.Commit.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaSourceTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       maxFetchBytes(cfg.MaxDocumentBytes),
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize documents, returning early once the
// flush interval elapses. An empty batch with a nil error means nothing
// arrived in time.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawDocument, error) {
	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	batch := make([]domain.RawDocument, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return batch, nil
			}
			if len(batch) > 0 {
				r.logger.Warn("fetch interrupted, returning partial batch", "error", err, "batch_size", len(batch))
				return batch, nil
			}
			return nil, err
		}
		batch = append(batch, r.mapMessageToRawDocument(msg))
	}
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) mapMessageToRawDocument(msg kafkago.Message) domain.RawDocument {
	raw := mapMessageToRawDocument(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func mapMessageToRawDocument(msg kafkago.Message) domain.RawDocument {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawDocument{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}

// maxFetchBytes leaves room for the record envelope around the largest
// accepted document.
func maxFetchBytes(maxDocument int64) int {
	const envelope = 64 << 10
	if maxDocument <= 0 {
		return 10e6
	}
	return int(maxDocument) + envelope
}
