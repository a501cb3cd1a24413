// Package inventory is the serialized writer for tool stock and the ledger.
// Every mutation — manual or scan-originated — routes through one Service
// guarded by a single mutex, so no two mutations are ever attempted
// concurrently and lost-update races on the quantity counters cannot occur.
//
// The order of effects inside each operation is fixed:
//  1. Mutate stock counters (atomic, invariant-preserving, may refuse)
//  2. Append the ledger row — only after the mutation succeeded
package inventory

import (
	"sync"

	"github.com/borrowmate/borrowmate/internal/domain"
	"github.com/borrowmate/borrowmate/internal/infra/observability"
	"github.com/borrowmate/borrowmate/internal/infra/sqlite"
)

// Service owns all writes to tool quantities and ledger rows.
type Service struct {
	mu sync.Mutex
	db *sqlite.DB
}

// New creates the inventory service over the local store.
func New(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// ─── Tool Lifecycle ─────────────────────────────────────────────────────────

// CreateTool registers a tool with total = available = qty.
// A duplicate code is a silent no-op: created is false, no error.
func (s *Service) CreateTool(name, code string, qty int, imageRef string) (id int64, created bool, err error) {
	if qty < 0 {
		return 0, false, domain.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.InsertTool(name, code, qty, imageRef)
}

// DeleteTool removes a tool. Its ledger history stays in place.
func (s *Service) DeleteTool(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.DeleteTool(id)
}

// Lookup finds a tool by barcode payload.
func (s *Service) Lookup(code string) (domain.Tool, error) {
	return s.db.GetToolByCode(code)
}

// Get finds a tool by id.
func (s *Service) Get(id int64) (domain.Tool, error) {
	return s.db.GetTool(id)
}

// List returns all tools.
func (s *Service) List() ([]domain.Tool, error) {
	return s.db.ListTools()
}

// ─── Movements ──────────────────────────────────────────────────────────────

// Borrow checks one unit out of the tool identified by code and records the
// movement. Refuses with ErrOutOfStock when no unit is available; the
// counters are left untouched and no ledger row is written.
func (s *Service) Borrow(code string, sc domain.SessionContext) (domain.Tool, error) {
	return s.move(code, domain.ActionBorrow, sc)
}

// Return checks one unit back in. Refuses with ErrAlreadyFull when every
// unit is already in the crib.
func (s *Service) Return(code string, sc domain.SessionContext) (domain.Tool, error) {
	return s.move(code, domain.ActionReturn, sc)
}

func (s *Service) move(code string, action domain.Action, sc domain.SessionContext) (domain.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tool, err := s.db.GetToolByCode(code)
	if err != nil {
		observability.Movements.WithLabelValues(string(action), "not_found").Inc()
		return domain.Tool{}, err
	}

	switch action {
	case domain.ActionBorrow:
		err = s.db.BorrowTool(tool.ID)
	case domain.ActionReturn:
		err = s.db.ReturnTool(tool.ID)
	}
	if err != nil {
		observability.Movements.WithLabelValues(string(action), "refused").Inc()
		return tool, err
	}

	// The guarded UPDATE moved the counter by exactly one; reflect that in
	// the snapshot handed back so callers see the post-mutation state.
	if action == domain.ActionBorrow {
		tool.AvailableQty--
	} else {
		tool.AvailableQty++
	}

	if _, err := s.db.AppendTransaction(tool.ID, action, sc.User, sc.WorkerType, ""); err != nil {
		return tool, err
	}
	observability.Movements.WithLabelValues(string(action), "ok").Inc()
	observability.LedgerAppends.Inc()
	return tool, nil
}

// Dispose permanently retires qty units of a tool. The stock mutation, the
// disposal record, and the Dispose ledger entry commit in one store
// transaction. available_qty is clamped down to the new total when borrowed
// units were retired (aggregate counters only — the store tracks no per-unit
// identity).
func (s *Service) Dispose(id int64, qty int, reason string, sc domain.SessionContext) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DisposeTool(id, qty, reason, sc.User, sc.WorkerType); err != nil {
		observability.Movements.WithLabelValues(string(domain.ActionDispose), "refused").Inc()
		return err
	}
	observability.Movements.WithLabelValues(string(domain.ActionDispose), "ok").Inc()
	observability.LedgerAppends.Inc()
	return nil
}

// AdjustStock applies a manual correction to available_qty, silently clamped
// into [0, total_qty]. Not a ledger-visible movement.
func (s *Service) AdjustStock(id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.AdjustAvailable(id, delta)
}

// IncreaseCapacity adds addQty new physical units to a tool's pool.
func (s *Service) IncreaseCapacity(id int64, addQty int) error {
	if addQty <= 0 {
		return domain.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.IncreaseCapacity(id, addQty)
}

// ─── Scan Apply ─────────────────────────────────────────────────────────────

// Apply executes one debounced scan intent against the store and ledger.
// It is the consumer side of the scan pipeline; the pipeline calls it
// strictly serially, and the mutex additionally serializes it against
// manual operations arriving over the API or CLI.
func (s *Service) Apply(intent domain.Intent) domain.ScanResult {
	var (
		tool domain.Tool
		err  error
	)
	switch intent.Session.Mode {
	case domain.ActionReturn:
		tool, err = s.Return(intent.Code, intent.Session)
	default:
		tool, err = s.Borrow(intent.Code, intent.Session)
	}
	return domain.ScanResult{Intent: intent, ToolName: tool.Name, Err: err}
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// History returns ledger entries matching the filter, newest first.
func (s *Service) History(filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	return s.db.QueryTransactions(filter)
}

// Disposals returns the disposal ledger, newest first.
func (s *Service) Disposals() ([]domain.DisposalRecord, error) {
	return s.db.ListDisposals()
}

// Stats is a consistent snapshot of ledger aggregations.
type Stats struct {
	ByAction          map[domain.Action]int     `json:"by_action"`
	BorrowsByWorker   map[domain.WorkerType]int `json:"borrows_by_worker_type"`
	DisposalsByWorker map[domain.WorkerType]int `json:"disposals_by_worker_type"`
}

// Stats returns the ledger aggregation views.
func (s *Service) Stats() (Stats, error) {
	byAction, err := s.db.CountByAction()
	if err != nil {
		return Stats{}, err
	}
	borrows, err := s.db.CountByWorkerType(domain.ActionBorrow)
	if err != nil {
		return Stats{}, err
	}
	disposals, err := s.db.CountByWorkerType(domain.ActionDispose)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ByAction: byAction, BorrowsByWorker: borrows, DisposalsByWorker: disposals}, nil
}
