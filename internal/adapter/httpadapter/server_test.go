package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockFetcher struct {
	doc   string
	err   error
	calls int
	last  fdsn.CatalogRequest
}

func (m *mockFetcher) FetchCatalog(_ context.Context, req fdsn.CatalogRequest) (string, error) {
	m.calls++
	m.last = req
	return m.doc, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, 1<<20, nil, discardLogger())
}

func newCatalogServer(catalog fdsn.CatalogFetcher) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{}, 1<<20, catalog, discardLogger())
}

func getSummary(srv http.Handler, query string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/summary?"+query, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func document(events ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<q:quakeml xmlns="http://quakeml.org/xmlns/bed/1.2" xmlns:q="http://quakeml.org/xmlns/quakeml/1.2">
<eventParameters publicID="smi:test/catalog">` + strings.Join(events, "") + `
<creationInfo><creationTime>2024-01-01T00:00:00Z</creationTime></creationInfo>
</eventParameters>
</q:quakeml>`
}

func event(id, preferredOrigin string, origins []string, mags map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<event publicID=%q>`, id)
	if preferredOrigin != "" {
		fmt.Fprintf(&b, `<preferredOriginID>%s</preferredOriginID>`, preferredOrigin)
	}
	for _, o := range origins {
		fmt.Fprintf(&b, `<origin publicID=%q><time><value>2024-01-01T00:00:00Z</value></time>`+
			`<latitude><value>10</value></latitude><longitude><value>20</value></longitude>`+
			`<depth><value>5000</value></depth></origin>`, o)
	}
	for mid, v := range mags {
		fmt.Fprintf(&b, `<magnitude publicID=%q><mag><value>%s</value></mag></magnitude>`, mid, v)
	}
	b.WriteString(`</event>`)
	return b.String()
}

func postSummary(srv http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/catalog/summary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/xml")
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSummaryReturnsMinMax(t *testing.T) {
	srv := newTestServer(nil)
	body := document(
		event("smi:test/e1", "", []string{"smi:test/o1"}, map[string]string{"smi:test/m1": "4.2"}),
		event("smi:test/e2", "", []string{"smi:test/o2"}, map[string]string{"smi:test/m2": "2.5"}),
		event("smi:test/e3", "", []string{"smi:test/o3"}, nil),
	)

	rec := postSummary(srv, body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody(t, rec)
	assert.InDelta(t, 3, got["event_count"], 0)
	assert.InDelta(t, 2.5, got["min_magnitude"], 1e-9)
	assert.InDelta(t, 4.2, got["max_magnitude"], 1e-9)
}

func TestSummaryWithoutMagnitudesHasNullMinMax(t *testing.T) {
	srv := newTestServer(nil)

	rec := postSummary(srv, document(event("smi:test/e1", "", []string{"smi:test/o1"}, nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.InDelta(t, 1, got["event_count"], 0)
	assert.Nil(t, got["min_magnitude"])
	assert.Nil(t, got["max_magnitude"])
}

func TestSummaryDecodeErrorReturns400(t *testing.T) {
	srv := newTestServer(nil)
	body := document(`<event publicID="smi:test/e1"><origin publicID="smi:test/o1">` +
		`<latitude><value>10</value></latitude><longitude><value>20</value></longitude>` +
		`<depth><value>5000</value></depth></origin></event>`)

	rec := postSummary(srv, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "missing_field", got["kind"])
	assert.Equal(t, "Origin", got["entity"])
	assert.Equal(t, "time", got["field"])
	assert.NotEmpty(t, got["error"])
}

func TestSummaryMalformedXMLReturns400(t *testing.T) {
	srv := newTestServer(nil)

	rec := postSummary(srv, "<q:quakeml><eventParameters>")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed_xml", decodeBody(t, rec)["kind"])
}

func TestSummaryResolutionErrorReturns422(t *testing.T) {
	srv := newTestServer(nil)
	body := document(event("smi:test/e1", "", []string{"smi:test/o1", "smi:test/o2"}, nil))

	rec := postSummary(srv, body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "no_preference_declared", got["kind"])
	assert.Equal(t, "Origin", got["entity"])
}

func TestSummaryDanglingReferenceReturns422(t *testing.T) {
	srv := newTestServer(nil)
	body := document(event("smi:test/e1", "smi:test/missing", []string{"smi:test/o1", "smi:test/o2"}, nil))

	rec := postSummary(srv, body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "dangling_reference", got["kind"])
	assert.Equal(t, "Origin", got["entity"])
	assert.Equal(t, "smi:test/missing", got["reference"])
}

func TestSummaryLoneOriginIgnoresDanglingReference(t *testing.T) {
	srv := newTestServer(nil)
	body := document(event("smi:test/e1", "smi:test/missing", []string{"smi:test/o1"}, map[string]string{"smi:test/m1": "3.1"}))

	rec := postSummary(srv, body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody(t, rec)
	assert.InDelta(t, 1, got["event_count"], 0)
	assert.InDelta(t, 3.1, got["max_magnitude"], 1e-9)
}

func TestSummaryDanglingMagnitudeReferenceReturns422(t *testing.T) {
	srv := newTestServer(nil)
	body := document(`<event publicID="smi:test/e1">` +
		`<preferredMagnitudeID>smi:test/gone</preferredMagnitudeID>` +
		`<origin publicID="smi:test/o1"><time><value>2024-01-01T00:00:00Z</value></time>` +
		`<latitude><value>10</value></latitude><longitude><value>20</value></longitude>` +
		`<depth><value>5000</value></depth></origin>` +
		`<magnitude publicID="smi:test/m1"><mag><value>2.0</value></mag></magnitude>` +
		`<magnitude publicID="smi:test/m2"><mag><value>2.4</value></mag></magnitude>` +
		`</event>`)

	rec := postSummary(srv, body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "dangling_reference", got["kind"])
	assert.Equal(t, "Magnitude", got["entity"])
	assert.Equal(t, "smi:test/gone", got["reference"])
}

func TestSummaryBodyTooLargeReturns413(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, 64, nil, discardLogger())

	rec := postSummary(srv, document(event("smi:test/e1", "", []string{"smi:test/o1"}, nil)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSummaryRejectsGetWithoutCatalogSource(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/summary", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFetchSummaryReturnsMinMax(t *testing.T) {
	fetcher := &mockFetcher{doc: document(
		event("smi:test/e1", "", []string{"smi:test/o1"}, map[string]string{"smi:test/m1": "5.6"}),
		event("smi:test/e2", "", []string{"smi:test/o2"}, map[string]string{"smi:test/m2": "4.5"}),
	)}
	srv := newCatalogServer(fetcher)

	rec := getSummary(srv, "starttime=2024-04-02&endtime=2024-04-03T12:00:00&minmagnitude=4.5")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody(t, rec)
	assert.InDelta(t, 2, got["event_count"], 0)
	assert.InDelta(t, 4.5, got["min_magnitude"], 1e-9)
	assert.InDelta(t, 5.6, got["max_magnitude"], 1e-9)

	assert.Equal(t, "2024-04-02T00:00:00", fetcher.last.StartTime.Format(fdsn.TimeLayout))
	assert.Equal(t, "2024-04-03T12:00:00", fetcher.last.EndTime.Format(fdsn.TimeLayout))
	require.NotNil(t, fetcher.last.MinMagnitude)
	assert.InDelta(t, 4.5, *fetcher.last.MinMagnitude, 0)
}

func TestFetchSummaryBadQueryReturns400(t *testing.T) {
	tests := map[string]string{
		"missing starttime": "endtime=2024-04-03",
		"missing endtime":   "starttime=2024-04-02",
		"bad time":          "starttime=soon&endtime=2024-04-03",
		"inverted window":   "starttime=2024-04-03&endtime=2024-04-02",
		"bad minmagnitude":  "starttime=2024-04-02&endtime=2024-04-03&minmagnitude=big",
	}
	for name, query := range tests {
		t.Run(name, func(t *testing.T) {
			fetcher := &mockFetcher{}
			rec := getSummary(newCatalogServer(fetcher), query)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
			assert.Zero(t, fetcher.calls)
		})
	}
}

func TestFetchSummaryNoDataIsEmptySummary(t *testing.T) {
	srv := newCatalogServer(&mockFetcher{err: fdsn.ErrNoData})

	rec := getSummary(srv, "starttime=2024-04-02&endtime=2024-04-03")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.InDelta(t, 0, got["event_count"], 0)
	assert.Nil(t, got["min_magnitude"])
	assert.Nil(t, got["max_magnitude"])
}

func TestFetchSummaryUpstreamErrorReturns502(t *testing.T) {
	srv := newCatalogServer(&mockFetcher{err: fmt.Errorf("fdsn API error: status 503")})

	rec := getSummary(srv, "starttime=2024-04-02&endtime=2024-04-03")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "503")
}

func TestFetchSummaryUndecodableUpstreamReturns502(t *testing.T) {
	srv := newCatalogServer(&mockFetcher{doc: "<q:quakeml><eventParameters>"})

	rec := getSummary(srv, "starttime=2024-04-02&endtime=2024-04-03")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "malformed_xml", decodeBody(t, rec)["kind"])
}

func TestFetchSummaryServesRepeatWindowsFromCache(t *testing.T) {
	inner := &mockFetcher{doc: document(event("smi:test/e1", "", []string{"smi:test/o1"}, map[string]string{"smi:test/m1": "6.1"}))}
	metrics := observability.NewMetricsForTesting()
	srv := newCatalogServer(fdsn.NewCachedClient(inner, 4, metrics))

	for range 2 {
		rec := getSummary(srv, "starttime=2024-04-02&endtime=2024-04-03")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FDSNCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FDSNCache.WithLabelValues("miss")), 0)
}
