// Package api provides the local HTTP surface for the presentation layer.
// It exposes tool management, manual borrow/return, ledger queries, and
// scan pipeline control. The core never pushes UI updates — handlers return
// results and the scan result feed is a subscribable channel.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/borrowmate/borrowmate/internal/app/inventory"
	"github.com/borrowmate/borrowmate/internal/app/scanner"
	"github.com/borrowmate/borrowmate/internal/domain"
)

// Server is the BorrowMate HTTP API server.
type Server struct {
	inv            *inventory.Service
	pipeline       *scanner.Pipeline
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(inv *inventory.Service, pipeline *scanner.Pipeline) *Server {
	return &Server{inv: inv, pipeline: pipeline}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Tool management
		r.Post("/tools", s.handleCreateTool)
		r.Get("/tools", s.handleListTools)
		r.Delete("/tools/{id}", s.handleDeleteTool)
		r.Post("/tools/{id}/dispose", s.handleDispose)
		r.Post("/tools/{id}/adjust", s.handleAdjust)
		r.Post("/tools/{id}/capacity", s.handleCapacity)

		// Manual movements — same serialized writer as scanning
		r.Post("/borrow", s.handleBorrow)
		r.Post("/return", s.handleReturn)

		// Ledger reads
		r.Get("/ledger", s.handleLedger)
		r.Get("/ledger/stats", s.handleLedgerStats)
		r.Get("/disposals", s.handleDisposals)

		// Scan pipeline control
		r.Post("/scan/session", s.handleScanSession)
		r.Post("/scan/start", s.handleScanStart)
		r.Post("/scan/stop", s.handleScanStop)
		r.Get("/scan/status", s.handleScanStatus)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// errStatus maps the domain error taxonomy onto HTTP status codes. Every one
// of these is a recoverable result for the caller, never a server fault.
func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrAlreadyFull),
		errors.Is(err, domain.ErrExceedsStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUserRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for the local desktop frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
