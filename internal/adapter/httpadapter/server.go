package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes health, readiness, metrics, and catalog summary endpoints.
type Server struct {
	httpServer   *http.Server
	maxBodyBytes int64
	catalog      fdsn.CatalogFetcher
	logger       *slog.Logger
}

// errorResponse is the body of every non-2xx summary response.
type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Entity    string `json:"entity,omitempty"`
	Field     string `json:"field,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /v1/catalog/summary routes. Upload bodies above maxBodyBytes are
// rejected with 413. When catalog is non-nil, GET /v1/catalog/summary
// summarizes a window fetched from it.
func NewServer(addr string, ready sharedobs.ReadinessChecker, maxBodyBytes int64, catalog fdsn.CatalogFetcher, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		maxBodyBytes: maxBodyBytes,
		catalog:      catalog,
		logger:       logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/catalog/summary", s.handleSummary)
	if catalog != nil {
		mux.HandleFunc("GET /v1/catalog/summary", s.handleFetchSummary)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
			return
		}
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	catalog, err := domain.Decode(string(body))
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := domain.Summarize(catalog)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Debug("catalog summarized", "summary", summary.String())
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

// handleFetchSummary summarizes ?starttime=&endtime=[&minmagnitude=] from the
// FDSN service. An empty window is a zero summary; upstream failures are 502.
func (s *Server) handleFetchSummary(w http.ResponseWriter, r *http.Request) {
	req, err := parseCatalogRequest(r)
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	doc, err := s.catalog.FetchCatalog(r.Context(), req)
	if errors.Is(err, fdsn.ErrNoData) {
		sharedobs.WriteJSON(w, http.StatusOK, domain.CatalogSummary{})
		return
	}
	if err != nil {
		s.logger.Warn("fetch catalog", "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	catalog, err := domain.Decode(doc)
	if err != nil {
		s.logger.Warn("undecodable upstream catalog", "error", err)
		resp := errorResponse{Error: err.Error()}
		var decodeErr *domain.DecodeError
		if errors.As(err, &decodeErr) {
			resp.Kind = decodeErr.Kind.String()
			resp.Entity = decodeErr.Entity
			resp.Field = decodeErr.Field
		}
		sharedobs.WriteJSON(w, http.StatusBadGateway, resp)
		return
	}
	summary, err := domain.Summarize(catalog)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Debug("catalog window summarized", "summary", summary.String())
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

func parseCatalogRequest(r *http.Request) (fdsn.CatalogRequest, error) {
	q := r.URL.Query()
	var req fdsn.CatalogRequest
	var err error
	if req.StartTime, err = requiredTime(q.Get("starttime"), "starttime"); err != nil {
		return fdsn.CatalogRequest{}, err
	}
	if req.EndTime, err = requiredTime(q.Get("endtime"), "endtime"); err != nil {
		return fdsn.CatalogRequest{}, err
	}
	if v := q.Get("minmagnitude"); v != "" {
		mag, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fdsn.CatalogRequest{}, fmt.Errorf("invalid minmagnitude %q", v)
		}
		req.MinMagnitude = &mag
	}
	if err := req.Validate(); err != nil {
		return fdsn.CatalogRequest{}, err
	}
	return req, nil
}

func requiredTime(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := fdsn.ParseTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var decodeErr *domain.DecodeError
	if errors.As(err, &decodeErr) {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{
			Error:  err.Error(),
			Kind:   decodeErr.Kind.String(),
			Entity: decodeErr.Entity,
			Field:  decodeErr.Field,
		})
		return
	}

	var resolveErr *domain.ResolutionError
	if errors.As(err, &resolveErr) {
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     err.Error(),
			Kind:      resolveErr.Kind.String(),
			Entity:    resolveErr.Entity,
			Reference: string(resolveErr.Reference),
		})
		return
	}

	s.logger.Error("summarize catalog", "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
