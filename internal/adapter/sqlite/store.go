// Package sqlite archives resolved quake events and catalog summaries in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/sqlite/migrations"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Store persists events and summaries in SQLite. It implements
// pipeline.BatchLoader and pipeline.SummaryRecorder.
type Store struct {
	sqlDB *sql.DB
	clock clockwork.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp summaries.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite archive at path and applies embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// LoadBatch upserts events by event id in one transaction, so replays of a
// batch leave the archive unchanged apart from processed_at.
func (s *Store) LoadBatch(ctx context.Context, events []domain.QuakeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO quake_events (
	   event_id, origin_id, origin_time, latitude, longitude, depth_m,
	   evaluation_mode, agency, magnitude, magnitude_type, magnitude_id,
	   description, origin_count, magnitude_count, processed_at
	 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT(event_id) DO UPDATE SET
	   origin_id = excluded.origin_id,
	   origin_time = excluded.origin_time,
	   latitude = excluded.latitude,
	   longitude = excluded.longitude,
	   depth_m = excluded.depth_m,
	   evaluation_mode = excluded.evaluation_mode,
	   agency = excluded.agency,
	   magnitude = excluded.magnitude,
	   magnitude_type = excluded.magnitude_type,
	   magnitude_id = excluded.magnitude_id,
	   description = excluded.description,
	   origin_count = excluded.origin_count,
	   magnitude_count = excluded.magnitude_count,
	   processed_at = excluded.processed_at`)
	if err != nil {
		return fmt.Errorf("prepare event upsert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		if strings.TrimSpace(e.ID) == "" {
			return errors.New("event id is required")
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.OriginID, toMillis(e.OriginTime),
			e.Hypocenter.Lat, e.Hypocenter.Lon, e.Hypocenter.Depth,
			e.EvaluationMode, e.Agency, nullFloat(e.Magnitude), e.MagnitudeType, e.MagnitudeID,
			e.Description, e.OriginCount, e.MagnitudeCount, toMillis(e.ProcessedAt),
		); err != nil {
			return fmt.Errorf("upsert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	return nil
}

// Event returns one archived event by id.
func (s *Store) Event(ctx context.Context, id string) (domain.QuakeEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.QuakeEvent{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT
	   event_id, origin_id, origin_time, latitude, longitude, depth_m,
	   evaluation_mode, agency, magnitude, magnitude_type, magnitude_id,
	   description, origin_count, magnitude_count, processed_at
	 FROM quake_events WHERE event_id = ?`, id)

	var (
		e           domain.QuakeEvent
		originTime  int64
		processedAt int64
		magnitude   sql.NullFloat64
	)
	err := row.Scan(
		&e.ID, &e.OriginID, &originTime,
		&e.Hypocenter.Lat, &e.Hypocenter.Lon, &e.Hypocenter.Depth,
		&e.EvaluationMode, &e.Agency, &magnitude, &e.MagnitudeType, &e.MagnitudeID,
		&e.Description, &e.OriginCount, &e.MagnitudeCount, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuakeEvent{}, ErrNotFound
	}
	if err != nil {
		return domain.QuakeEvent{}, fmt.Errorf("get event %s: %w", id, err)
	}
	e.OriginTime = fromMillis(originTime)
	e.ProcessedAt = fromMillis(processedAt)
	e.Magnitude = floatPtr(magnitude)
	return e, nil
}

// SaveSummary upserts the summary of the document identified by key.
func (s *Store) SaveSummary(ctx context.Context, key string, summary domain.CatalogSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("document key is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO catalog_summaries (
	   document_key, event_count, min_magnitude, max_magnitude, computed_at
	 ) VALUES (?, ?, ?, ?, ?)
	 ON CONFLICT(document_key) DO UPDATE SET
	   event_count = excluded.event_count,
	   min_magnitude = excluded.min_magnitude,
	   max_magnitude = excluded.max_magnitude,
	   computed_at = excluded.computed_at`,
		key, summary.EventCount, nullFloat(summary.MinMagnitude), nullFloat(summary.MaxMagnitude),
		toMillis(s.clock.Now()),
	)
	if err != nil {
		return fmt.Errorf("save summary %s: %w", key, err)
	}
	return nil
}

// Summary returns the stored summary of the document identified by key.
func (s *Store) Summary(ctx context.Context, key string) (domain.CatalogSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.CatalogSummary{}, err
	}
	var (
		summary domain.CatalogSummary
		lo, hi  sql.NullFloat64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT event_count, min_magnitude, max_magnitude FROM catalog_summaries WHERE document_key = ?`, key,
	).Scan(&summary.EventCount, &lo, &hi)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogSummary{}, ErrNotFound
	}
	if err != nil {
		return domain.CatalogSummary{}, fmt.Errorf("get summary %s: %w", key, err)
	}
	summary.MinMagnitude = floatPtr(lo)
	summary.MaxMagnitude = floatPtr(hi)
	return summary, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
