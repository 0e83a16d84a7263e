// Package api exposes the HTTP interface for the extraction service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/metrics"
	"github.com/shoplens/extractor/internal/middleware"
	"github.com/shoplens/extractor/internal/product"
)

// Extractor runs one extraction end to end. The pipeline orchestrator
// satisfies this.
type Extractor interface {
	Extract(ctx context.Context, rawURL string, hints product.Hints) (product.Record, error)
}

// Config controls server behavior.
type Config struct {
	RequestTimeout time.Duration
	AuthEnabled    bool
	APIKey         string
}

// Server wires HTTP handlers to the extraction pipeline and record store.
type Server struct {
	router    chi.Router
	extractor Extractor
	records   product.RecordStore
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. records may be
// nil when no store is configured; the lookup endpoint then reports 501.
func NewServer(extractor Extractor, records product.RecordStore, logger *zap.Logger, cfg Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		extractor: extractor,
		records:   records,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.AuthEnabled {
		r.Use(middleware.APIKey(cfg.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.extract)
		r.Get("/records/{signature}", s.getRecord)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type extractRequest struct {
	URL          string `json:"url"`
	CurrencyHint string `json:"currency_hint"`
	LanguageHint string `json:"language_hint"`
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	hints := product.Hints{Currency: req.CurrencyHint, Language: req.LanguageHint}
	record, err := s.extractor.Extract(r.Context(), req.URL, hints)
	if err != nil {
		s.logger.Warn("extraction failed",
			zap.String("url", req.URL),
			zap.Error(err),
		)
		writeError(w, extractionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// extractionStatus maps pipeline errors onto HTTP status codes.
func extractionStatus(err error) int {
	switch {
	case product.IsInvalidURL(err):
		return http.StatusBadRequest
	case product.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "record store not configured")
		return
	}
	signature := chi.URLParam(r, "signature")
	record, err := s.records.GetRecord(r.Context(), signature)
	if err != nil {
		if errors.Is(err, product.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
