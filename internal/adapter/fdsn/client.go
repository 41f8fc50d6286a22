package fdsn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// TimeLayout is the FDSN query time format. Times are always sent in UTC.
const TimeLayout = "2006-01-02T15:04:05"

// queryTimeLayouts are accepted by ParseTime, most specific first. Layouts
// without a zone are read as UTC.
var queryTimeLayouts = []string{
	time.RFC3339Nano,
	TimeLayout,
	"2006-01-02",
}

// ParseTime reads a window bound given as a date, an FDSN query time or an
// RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// ErrNoData is returned when the service answers 204 No Content, meaning no
// event matched the request.
var ErrNoData = errors.New("fdsn: no events match the request")

// CatalogRequest selects a window of the event catalog.
type CatalogRequest struct {
	StartTime    time.Time
	EndTime      time.Time
	MinMagnitude *float64
}

// Validate checks the window bounds.
func (r CatalogRequest) Validate() error {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return errors.New("start and end time are required")
	}
	if !r.EndTime.After(r.StartTime) {
		return fmt.Errorf("end time %s is not after start time %s",
			r.EndTime.UTC().Format(TimeLayout), r.StartTime.UTC().Format(TimeLayout))
	}
	return nil
}

func (r CatalogRequest) query() url.Values {
	q := url.Values{
		"format":    {"quakeml"},
		"starttime": {r.StartTime.UTC().Format(TimeLayout)},
		"endtime":   {r.EndTime.UTC().Format(TimeLayout)},
	}
	if r.MinMagnitude != nil {
		q.Set("minmagnitude", strconv.FormatFloat(*r.MinMagnitude, 'f', -1, 64))
	}
	return q
}

// cacheKey identifies the request; equal windows share a key.
func (r CatalogRequest) cacheKey() string {
	return r.query().Encode()
}

// CatalogFetcher retrieves raw QuakeML documents.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, req CatalogRequest) (string, error)
}

// Client queries an FDSN event web service for QuakeML catalogs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxBytes   int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an FDSN event client. maxBytes bounds the response body;
// metrics may be nil.
func NewClient(baseURL string, timeout time.Duration, maxBytes int64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		maxBytes: maxBytes,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchCatalog downloads the QuakeML document for the requested window.
func (c *Client) FetchCatalog(ctx context.Context, req CatalogRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid catalog request: %w", err)
	}

	fullURL := c.baseURL + "?" + req.query().Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.observeDuration(start)
	if err != nil {
		c.countRequest("error")
		return "", fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		c.countRequest("no_data")
		return "", ErrNoData
	case resp.StatusCode != http.StatusOK:
		c.countRequest("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("fdsn API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := c.readBody(resp.Body)
	if err != nil {
		c.countRequest("error")
		return "", err
	}
	c.countRequest("success")
	c.logger.Debug("fetched catalog", "url", fullURL, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

func (c *Client) readBody(r io.Reader) (string, error) {
	if c.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return "", fmt.Errorf("catalog exceeds %d bytes; narrow the time window", c.maxBytes)
	}
	return string(data), nil
}

func (c *Client) countRequest(outcome string) {
	if c.metrics != nil {
		c.metrics.FDSNRequests.WithLabelValues(outcome).Inc()
	}
}

func (c *Client) observeDuration(start time.Time) {
	if c.metrics != nil {
		c.metrics.FDSNAPIDuration.Observe(time.Since(start).Seconds())
	}
}
