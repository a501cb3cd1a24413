package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Tool Management ────────────────────────────────────────────────────────

// POST /api/tools
func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Code     string `json:"code"`
		Qty      int    `json:"qty"`
		ImageRef string `json:"image_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "name and code are required")
		return
	}

	id, created, err := s.inv.CreateTool(req.Name, req.Code, req.Qty, req.ImageRef)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"created": created, // false: code already exists, call was a no-op
	})
}

// GET /api/tools
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.inv.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tools == nil {
		tools = []domain.Tool{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

// DELETE /api/tools/{id}
func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.inv.DeleteTool(id); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/tools/{id}/dispose
func (s *Server) handleDispose(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Qty        int    `json:"qty"`
		Reason     string `json:"reason"`
		User       string `json:"user"`
		WorkerType string `json:"worker_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc := domain.SessionContext{
		User:       req.User,
		Mode:       domain.ActionDispose,
		WorkerType: workerTypeOrDefault(req.WorkerType),
	}
	if err := s.inv.Dispose(id, req.Qty, req.Reason, sc); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disposed"})
}

// POST /api/tools/{id}/adjust
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.inv.AdjustStock(id, req.Delta); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	tool, err := s.inv.Get(id)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// POST /api/tools/{id}/capacity
func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Add int `json:"add"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.inv.IncreaseCapacity(id, req.Add); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	tool, err := s.inv.Get(id)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// ─── Manual Movements ───────────────────────────────────────────────────────

// POST /api/borrow
func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, domain.ActionBorrow)
}

// POST /api/return
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, domain.ActionReturn)
}

func (s *Server) handleMovement(w http.ResponseWriter, r *http.Request, action domain.Action) {
	var req struct {
		Code       string `json:"code"`
		User       string `json:"user"`
		WorkerType string `json:"worker_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	sc := domain.SessionContext{
		User:       req.User,
		Mode:       action,
		WorkerType: workerTypeOrDefault(req.WorkerType),
	}

	var (
		tool domain.Tool
		err  error
	)
	if action == domain.ActionBorrow {
		tool, err = s.inv.Borrow(req.Code, sc)
	} else {
		tool, err = s.inv.Return(req.Code, sc)
	}
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// ─── Ledger Reads ───────────────────────────────────────────────────────────

// GET /api/ledger?user=&action=&from=&to=
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	filter := domain.LedgerFilter{
		User:   r.URL.Query().Get("user"),
		Action: domain.Action(r.URL.Query().Get("action")),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.To = t
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		writeError(w, http.StatusBadRequest, "from date must not be after to date")
		return
	}

	entries, err := s.inv.History(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// GET /api/ledger/stats
func (s *Server) handleLedgerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.inv.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/disposals
func (s *Server) handleDisposals(w http.ResponseWriter, r *http.Request) {
	records, err := s.inv.Disposals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []domain.DisposalRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"disposals": records})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tool id")
		return 0, false
	}
	return id, true
}

func workerTypeOrDefault(wt string) domain.WorkerType {
	if wt == "" {
		return domain.DefaultWorkerType
	}
	return domain.WorkerType(wt)
}
