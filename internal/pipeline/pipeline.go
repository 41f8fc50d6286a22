package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw documents from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawDocument, error)
}

// Transformer turns one raw QuakeML document into its resolved events.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawDocument) ([]domain.QuakeEvent, error)
}

// BatchLoader writes resolved events to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.QuakeEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has loaded at least one batch,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any documents yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.DocumentsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	loaded, ok := p.transformAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad transforms each document in the batch, loads the events of
// the successful ones, and commits offsets. A document that fails to decode or
// resolve is skipped and committed. Returns the number of loaded events and
// false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawDocument, backoff *time.Duration) (int, bool) {
	var outBatch []domain.QuakeEvent
	successfulRaws := make([]domain.RawDocument, 0, len(rawBatch))

	for _, raw := range rawBatch {
		events, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping document",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.recordTransformError(err)
			p.commitOffset(ctx, raw)
			continue
		}
		outBatch = append(outBatch, events...)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(outBatch) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		return 0, p.backoffOrStop(ctx, backoff)
	}

	p.metrics.EventsProduced.Add(float64(len(outBatch)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(outBatch), true
}

func (p *Pipeline) recordTransformError(err error) {
	var decErr *domain.DecodeError
	if errors.As(err, &decErr) {
		p.metrics.DecodeErrors.WithLabelValues(decErr.Kind.String()).Inc()
		return
	}
	var resErr *domain.ResolutionError
	if errors.As(err, &resErr) {
		p.metrics.ResolutionErrors.WithLabelValues(resErr.Kind.String()).Inc()
		return
	}
	p.metrics.DecodeErrors.WithLabelValues("other").Inc()
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawDocument) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
