package inventory

import (
	"errors"
	"sync"
	"testing"

	"github.com/borrowmate/borrowmate/internal/domain"
	"github.com/borrowmate/borrowmate/internal/infra/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

var testSession = domain.SessionContext{
	User:       "alex",
	Mode:       domain.ActionBorrow,
	WorkerType: domain.WorkerMetal,
}

// ─── Tool Lifecycle ─────────────────────────────────────────────────────────

func TestCreateTool(t *testing.T) {
	svc := newTestService(t)

	id, created, err := svc.CreateTool("Hammer", "H100", 5, "")
	if err != nil {
		t.Fatalf("CreateTool() error: %v", err)
	}
	if !created {
		t.Fatal("created = false, want true")
	}

	tool, err := svc.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if tool.TotalQty != 5 || tool.AvailableQty != 5 {
		t.Errorf("qty = %d/%d, want 5/5", tool.AvailableQty, tool.TotalQty)
	}
}

func TestCreateTool_NegativeQuantity(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.CreateTool("Hammer", "H100", -1, "")
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("err = %v, want ErrInvalidQuantity", err)
	}
}

func TestCreateTool_DuplicateIsNoOp(t *testing.T) {
	svc := newTestService(t)
	first, _, _ := svc.CreateTool("Hammer", "H100", 5, "")

	id, created, err := svc.CreateTool("Other", "H100", 99, "")
	if err != nil {
		t.Fatalf("CreateTool() error: %v", err)
	}
	if created || id != first {
		t.Errorf("(id, created) = (%d, %v), want (%d, false)", id, created, first)
	}
}

// ─── Movements ──────────────────────────────────────────────────────────────

func TestBorrowReturn_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	svc.CreateTool("Hammer", "H100", 5, "")

	tool, err := svc.Borrow("H100", testSession)
	if err != nil {
		t.Fatalf("Borrow() error: %v", err)
	}
	if tool.Name != "Hammer" {
		t.Errorf("Name = %q, want Hammer", tool.Name)
	}
	// The returned snapshot reflects the mutation, not the pre-borrow read.
	if tool.AvailableQty != 4 {
		t.Errorf("Borrow returned available_qty = %d, want 4", tool.AvailableQty)
	}

	tool, err = svc.Return("H100", testSession)
	if err != nil {
		t.Fatalf("Return() error: %v", err)
	}
	if tool.AvailableQty != 5 {
		t.Errorf("Return returned available_qty = %d, want 5", tool.AvailableQty)
	}

	// Return is the exact inverse: counters are back where they started.
	after, _ := svc.Lookup("H100")
	if after.AvailableQty != 5 {
		t.Errorf("AvailableQty = %d, want 5", after.AvailableQty)
	}

	// Both movements landed in the ledger.
	entries, err := svc.History(domain.LedgerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Action != domain.ActionReturn || entries[1].Action != domain.ActionBorrow {
		t.Errorf("actions = [%s %s], want [return borrow]", entries[0].Action, entries[1].Action)
	}
}

func TestBorrow_ExhaustsStock(t *testing.T) {
	svc := newTestService(t)
	svc.CreateTool("Hammer", "H100", 5, "")

	for i := 0; i < 5; i++ {
		if _, err := svc.Borrow("H100", testSession); err != nil {
			t.Fatalf("Borrow %d error: %v", i+1, err)
		}
	}

	// Sixth borrow refused; no ledger entry for the refusal.
	if _, err := svc.Borrow("H100", testSession); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
	entries, _ := svc.History(domain.LedgerFilter{})
	if len(entries) != 5 {
		t.Errorf("len(entries) = %d, want 5 (refusals are not recorded)", len(entries))
	}

	// One return re-opens exactly one slot.
	if _, err := svc.Return("H100", testSession); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Borrow("H100", testSession); err != nil {
		t.Errorf("Borrow after Return error: %v", err)
	}
}

func TestBorrow_UnknownCode(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Borrow("NOPE", testSession)
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestLedgerIDs_StrictlyIncreasing(t *testing.T) {
	svc := newTestService(t)
	svc.CreateTool("Hammer", "H100", 10, "")

	for i := 0; i < 6; i++ {
		if _, err := svc.Borrow("H100", testSession); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := svc.History(domain.LedgerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	// Newest first: IDs strictly decreasing in the returned slice.
	for i := 1; i < len(entries); i++ {
		if entries[i].ID >= entries[i-1].ID {
			t.Fatalf("IDs not strictly ordered: %d then %d", entries[i-1].ID, entries[i].ID)
		}
	}
}

// ─── Disposal ───────────────────────────────────────────────────────────────

func TestDispose(t *testing.T) {
	svc := newTestService(t)
	id, _, _ := svc.CreateTool("Saw", "S400", 10, "")

	sc := domain.SessionContext{User: "alex", Mode: domain.ActionDispose, WorkerType: domain.WorkerMason}
	if err := svc.Dispose(id, 7, "rusted", sc); err != nil {
		t.Fatalf("Dispose() error: %v", err)
	}

	tool, _ := svc.Get(id)
	if tool.TotalQty != 3 || tool.AvailableQty != 3 {
		t.Errorf("qty = %d/%d, want 3/3", tool.AvailableQty, tool.TotalQty)
	}

	// Dispose writes both ledgers.
	entries, _ := svc.History(domain.LedgerFilter{Action: domain.ActionDispose})
	if len(entries) != 1 {
		t.Fatalf("dispose entries = %d, want 1", len(entries))
	}
	if entries[0].Reason != "rusted" {
		t.Errorf("Reason = %q, want rusted", entries[0].Reason)
	}
	records, _ := svc.Disposals()
	if len(records) != 1 || records[0].Quantity != 7 {
		t.Errorf("records = %+v, want one with quantity 7", records)
	}
}

func TestDispose_InvalidQuantity(t *testing.T) {
	svc := newTestService(t)
	id, _, _ := svc.CreateTool("Saw", "S400", 3, "")

	for _, qty := range []int{0, -2} {
		err := svc.Dispose(id, qty, "", testSession)
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("Dispose(qty=%d) err = %v, want ErrInvalidQuantity", qty, err)
		}
	}
}

func TestDispose_ExceedsStock(t *testing.T) {
	svc := newTestService(t)
	id, _, _ := svc.CreateTool("Saw", "S400", 3, "")

	err := svc.Dispose(id, 4, "", testSession)
	if !errors.Is(err, domain.ErrExceedsStock) {
		t.Fatalf("err = %v, want ErrExceedsStock", err)
	}
	// No ledger entry for the refusal.
	entries, _ := svc.History(domain.LedgerFilter{})
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

// ─── Scan Apply ─────────────────────────────────────────────────────────────

func TestApply_BorrowAndReturn(t *testing.T) {
	svc := newTestService(t)
	svc.CreateTool("Hammer", "H100", 5, "")

	res := svc.Apply(domain.Intent{Code: "H100", Session: testSession})
	if !res.Ok() {
		t.Fatalf("Apply(borrow) error: %v", res.Err)
	}
	if res.ToolName != "Hammer" {
		t.Errorf("ToolName = %q, want Hammer", res.ToolName)
	}

	returnSession := testSession
	returnSession.Mode = domain.ActionReturn
	res = svc.Apply(domain.Intent{Code: "H100", Session: returnSession})
	if !res.Ok() {
		t.Fatalf("Apply(return) error: %v", res.Err)
	}

	tool, _ := svc.Lookup("H100")
	if tool.AvailableQty != 5 {
		t.Errorf("AvailableQty = %d, want 5", tool.AvailableQty)
	}
}

func TestApply_FailureIsPerIntent(t *testing.T) {
	svc := newTestService(t)
	svc.CreateTool("Hammer", "H100", 1, "")

	if res := svc.Apply(domain.Intent{Code: "H100", Session: testSession}); !res.Ok() {
		t.Fatal(res.Err)
	}
	res := svc.Apply(domain.Intent{Code: "H100", Session: testSession})
	if !errors.Is(res.Err, domain.ErrOutOfStock) {
		t.Errorf("Err = %v, want ErrOutOfStock", res.Err)
	}
}

// ─── Concurrency ────────────────────────────────────────────────────────────

func TestConcurrentMutations_PreserveInvariant(t *testing.T) {
	svc := newTestService(t)
	id, _, _ := svc.CreateTool("Hammer", "H100", 10, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := svc.Borrow("H100", testSession); err == nil {
					svc.Return("H100", testSession)
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				svc.AdjustStock(id, delta)
			}
		}(1 - 2*(i%2))
	}
	wg.Wait()

	tool, err := svc.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if tool.AvailableQty < 0 || tool.AvailableQty > tool.TotalQty {
		t.Fatalf("invariant violated: available=%d total=%d", tool.AvailableQty, tool.TotalQty)
	}

	// Every successful movement has a ledger row; a Return always follows a
	// successful Borrow in each goroutine, so returns never exceed borrows.
	stats, err := svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.ByAction[domain.ActionReturn] > stats.ByAction[domain.ActionBorrow] {
		t.Errorf("returns (%d) exceed borrows (%d)", stats.ByAction[domain.ActionReturn], stats.ByAction[domain.ActionBorrow])
	}
}

func TestConcurrentMutations_NoLostUpdates(t *testing.T) {
	svc := newTestService(t)
	id, _, _ := svc.CreateTool("Hammer", "H100", 1000, "")

	// 400 borrows and 100 downward adjustments, sized so the pool can never
	// run dry and the clamp can never trigger. Every operation must succeed
	// and every decrement must land: the final count is exact, not a range.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := svc.Borrow("H100", testSession); err != nil {
					t.Errorf("Borrow failed: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := svc.AdjustStock(id, -1); err != nil {
					t.Errorf("AdjustStock failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	tool, err := svc.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if want := 1000 - 400 - 100; tool.AvailableQty != want {
		t.Errorf("AvailableQty = %d, want %d (lost update)", tool.AvailableQty, want)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.ByAction[domain.ActionBorrow] != 400 {
		t.Errorf("ledger borrows = %d, want 400", stats.ByAction[domain.ActionBorrow])
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	id, _, _ := svc.CreateTool("Hammer", "H100", 10, "")

	mason := domain.SessionContext{User: "sam", Mode: domain.ActionBorrow, WorkerType: domain.WorkerMason}
	svc.Borrow("H100", testSession)
	svc.Borrow("H100", mason)
	svc.Dispose(id, 1, "bent", testSession)

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.ByAction[domain.ActionBorrow] != 2 {
		t.Errorf("borrows = %d, want 2", stats.ByAction[domain.ActionBorrow])
	}
	if stats.BorrowsByWorker[domain.WorkerMason] != 1 {
		t.Errorf("mason borrows = %d, want 1", stats.BorrowsByWorker[domain.WorkerMason])
	}
	if stats.DisposalsByWorker[domain.WorkerMetal] != 1 {
		t.Errorf("metalworker disposals = %d, want 1", stats.DisposalsByWorker[domain.WorkerMetal])
	}
}
