package api

import (
	"encoding/json"
	"net/http"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Scan Pipeline Control ──────────────────────────────────────────────────
// The presentation layer sets the session context, toggles scanning, and
// polls status. Per-intent outcomes flow over the pipeline's result channel.

// POST /api/scan/session
func (s *Server) handleScanSession(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not initialized")
		return
	}
	var req struct {
		User       string `json:"user"`
		Mode       string `json:"mode"`
		WorkerType string `json:"worker_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := domain.Action(req.Mode)
	if mode != domain.ActionBorrow && mode != domain.ActionReturn {
		writeError(w, http.StatusBadRequest, "mode must be borrow or return")
		return
	}

	s.pipeline.SetSession(domain.SessionContext{
		User:       req.User,
		Mode:       mode,
		WorkerType: workerTypeOrDefault(req.WorkerType),
	})
	writeJSON(w, http.StatusOK, s.pipeline.Session())
}

// POST /api/scan/start
func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not initialized")
		return
	}
	if err := s.pipeline.Start(); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scanning":   true,
		"session_id": s.pipeline.SessionID(),
	})
}

// POST /api/scan/stop — blocks until queued intents have drained.
func (s *Server) handleScanStop(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not initialized")
		return
	}
	s.pipeline.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{"scanning": false})
}

// GET /api/scan/status
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not initialized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scanning":   s.pipeline.Running(),
		"session_id": s.pipeline.SessionID(),
		"session":    s.pipeline.Session(),
	})
}
