package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// readinessChecks is ready only when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (r readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional local archive (enabled via SQLITE_PATH).
	var store *sqlite.Store
	var recorder pipeline.SummaryRecorder
	if cfg.SQLitePath != "" {
		store, err = sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite archive", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		recorder = store
		logger.Info("sqlite archive enabled", "path", cfg.SQLitePath)
	} else {
		logger.Info("sqlite archive disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(recorder, logger, metrics)

	loaders := []pipeline.BatchLoader{writer}
	ready := readinessChecks{}
	if store != nil {
		loaders = append(loaders, store)
		ready = append(ready, store)
	}

	p := pipeline.New(reader, transformer, pipeline.NewFanoutLoader(loaders...), logger, metrics, cfg.BatchSize)
	ready = append(readinessChecks{p}, ready...)

	catalog := fdsn.NewCachedClient(
		fdsn.NewClient(cfg.FDSNBaseURL, cfg.FDSNTimeout, cfg.MaxDocumentBytes, metrics, logger),
		cfg.FDSNCacheSize, metrics,
	)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, cfg.MaxDocumentBytes, catalog, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if !waitForPipeline(shutdownCtx, pipelineDone) {
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("sqlite archive close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// waitForPipeline blocks until done is closed or ctx expires, reporting
// whether the pipeline finished. Loaders are closed only after this returns.
func waitForPipeline(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
