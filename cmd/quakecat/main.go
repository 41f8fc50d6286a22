// Command quakecat downloads a window of the FDSN event catalog as QuakeML,
// logs a summary of its preferred magnitudes and saves the document as-is.
// With -db, the resolved events and the summary are also archived to SQLite.
//
// Usage:
//
//	go run ./cmd/quakecat \
//	  -start-time 2024-04-02 -end-time 2024-04-03 \
//	  -min-magnitude 4.5 -save-as data/catalog.quakeml \
//	  -db data/archive.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type options struct {
	request fdsn.CatalogRequest
	saveAs  string
	dbPath  string
	baseURL string
	timeout time.Duration
	maxSize int64
	verbose bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := sharedcfg.EnvOrDefault("LOG_LEVEL", "info")
	if opts.verbose {
		level = "debug"
	}
	logger := sharedobs.NewLogger(level, sharedcfg.EnvOrDefault("LOG_FORMAT", "text"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("quakecat failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("quakecat", flag.ContinueOnError)
	opts := options{}

	timeout, err := config.ParseFDSNTimeout()
	if err != nil {
		return options{}, err
	}

	fs.Func("start-time", "window start (2006-01-02, 2006-01-02T15:04:05 or RFC 3339)", func(s string) error {
		t, err := fdsn.ParseTime(s)
		opts.request.StartTime = t
		return err
	})
	fs.Func("end-time", "window end (same formats as -start-time)", func(s string) error {
		t, err := fdsn.ParseTime(s)
		opts.request.EndTime = t
		return err
	})
	fs.Func("min-magnitude", "only events at or above this magnitude", func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid magnitude %q", s)
		}
		opts.request.MinMagnitude = &v
		return nil
	})
	fs.StringVar(&opts.saveAs, "save-as", "", "path to save the downloaded QuakeML document")
	fs.StringVar(&opts.dbPath, "db", "", "optional SQLite archive for resolved events")
	fs.StringVar(&opts.baseURL, "fdsn-url", sharedcfg.EnvOrDefault("FDSN_BASE_URL", config.DefaultFDSNBaseURL), "FDSN event query endpoint")
	fs.DurationVar(&opts.timeout, "timeout", timeout, "HTTP timeout for the FDSN request; FDSN_TIMEOUT sets the default")
	fs.Int64Var(&opts.maxSize, "max-bytes", 32<<20, "maximum accepted document size")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.saveAs == "" {
		return options{}, errors.New("-save-as is required")
	}
	if err := opts.request.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid window: %w", err)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	client := fdsn.NewClient(opts.baseURL, opts.timeout, opts.maxSize, nil, logger)

	doc, err := client.FetchCatalog(ctx, opts.request)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	catalog, err := domain.Decode(doc)
	if err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	summary, err := domain.Summarize(catalog)
	if err != nil {
		return fmt.Errorf("summarize catalog: %w", err)
	}
	logger.Info("Downloaded data from usgs", "summary", summary.String())

	if err := saveDocument(opts.saveAs, doc); err != nil {
		return err
	}
	logger.Debug("catalog saved", "path", opts.saveAs, "bytes", len(doc))

	if opts.dbPath == "" {
		return nil
	}
	return archive(ctx, opts, catalog, summary, logger)
}

func saveDocument(path, doc string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

func archive(ctx context.Context, opts options, catalog domain.Catalog, summary domain.CatalogSummary, logger *slog.Logger) error {
	store, err := sqlite.Open(ctx, opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	events := make([]domain.QuakeEvent, 0, len(catalog.Events()))
	for _, ev := range catalog.Events() {
		flat, err := domain.Flatten(ev)
		if err != nil {
			return fmt.Errorf("resolve event %s: %w", ev.PublicID, err)
		}
		events = append(events, flat)
	}
	if err := store.LoadBatch(ctx, events); err != nil {
		return err
	}
	if err := store.SaveSummary(ctx, documentKey(opts.request), summary); err != nil {
		return err
	}
	logger.Info("catalog archived", "path", opts.dbPath, "events", len(events))
	return nil
}

// documentKey names a downloaded window in the archive.
func documentKey(req fdsn.CatalogRequest) string {
	key := "fdsn/" + req.StartTime.UTC().Format(fdsn.TimeLayout) + "/" + req.EndTime.UTC().Format(fdsn.TimeLayout)
	if req.MinMagnitude != nil {
		key += "/" + strconv.FormatFloat(*req.MinMagnitude, 'f', -1, 64)
	}
	return key
}
