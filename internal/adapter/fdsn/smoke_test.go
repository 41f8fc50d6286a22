//go:build fdsn

package fdsn

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real USGS FDSN event service.
// Run with: go test -tags=fdsn ./internal/adapter/fdsn/ -v -count=1

const usgsURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

func TestSmoke_FetchAndSummarize(t *testing.T) {
	c := NewClient(usgsURL, 30*time.Second, 32<<20, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mag := 4.0
	doc, err := c.FetchCatalog(context.Background(), CatalogRequest{
		StartTime:    time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC),
		MinMagnitude: &mag,
	})
	require.NoError(t, err)

	catalog, err := domain.Decode(doc)
	require.NoError(t, err)

	summary, err := domain.Summarize(catalog)
	require.NoError(t, err)
	assert.Positive(t, summary.EventCount)
	require.NotNil(t, summary.MinMagnitude)
	assert.GreaterOrEqual(t, *summary.MinMagnitude, 4.0)
	t.Log(summary)
}

func TestSmoke_EmptyWindow(t *testing.T) {
	c := NewClient(usgsURL, 30*time.Second, 32<<20, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mag := 9.9
	_, err := c.FetchCatalog(context.Background(), CatalogRequest{
		StartTime:    time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2010, 1, 1, 1, 0, 0, 0, time.UTC),
		MinMagnitude: &mag,
	})
	assert.ErrorIs(t, err, ErrNoData)
}
