package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// SummaryRecorder persists the summary of each decoded catalog.
type SummaryRecorder interface {
	SaveSummary(ctx context.Context, key string, summary domain.CatalogSummary) error
}

// CatalogTransformer implements Transformer: it decodes a QuakeML document,
// resolves every event and summarizes the catalog.
type CatalogTransformer struct {
	recorder SummaryRecorder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a CatalogTransformer. Pass a nil recorder to skip
// persisting summaries.
func NewTransformer(recorder SummaryRecorder, logger *slog.Logger, metrics *observability.Metrics) *CatalogTransformer {
	return &CatalogTransformer{
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Transform decodes raw.Value and flattens each event. The first event that
// fails to resolve fails the whole document.
func (t *CatalogTransformer) Transform(ctx context.Context, raw domain.RawDocument) ([]domain.QuakeEvent, error) {
	catalog, err := domain.DecodeReader(bytes.NewReader(raw.Value))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	events := catalog.Events()
	out := make([]domain.QuakeEvent, 0, len(events))
	for i := range events {
		qe, err := domain.Flatten(events[i])
		if err != nil {
			return nil, fmt.Errorf("resolve event %s: %w", events[i].PublicID, err)
		}
		out = append(out, qe)
	}

	summary, err := domain.Summarize(catalog)
	if err != nil {
		return nil, err
	}

	key := DocumentKey(raw)
	t.logger.Info("catalog decoded",
		"document", key,
		"event_count", summary.EventCount,
		"summary", summary.String(),
	)
	t.metrics.EventsPerDocument.Observe(float64(summary.EventCount))
	if summary.MaxMagnitude != nil {
		t.metrics.LastMaxMagnitude.Set(*summary.MaxMagnitude)
	}

	if t.recorder != nil {
		if err := t.recorder.SaveSummary(ctx, key, summary); err != nil {
			t.logger.Warn("save catalog summary failed", "error", err, "document", key)
		}
	}
	return out, nil
}

// DocumentKey identifies a source document: its message key when set,
// otherwise its topic/partition/offset position.
func DocumentKey(raw domain.RawDocument) string {
	if len(raw.Key) > 0 {
		return string(raw.Key)
	}
	return fmt.Sprintf("%s/%d/%d", raw.Topic, raw.Partition, raw.Offset)
}
