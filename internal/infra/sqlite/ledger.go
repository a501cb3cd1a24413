// Ledger operations. The transactions table is append-only: rows are written
// once a stock mutation has already succeeded and are never updated or
// deleted, so id order is a valid total order for audit purposes.
package sqlite

import (
	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Ledger Append ──────────────────────────────────────────────────────────

// AppendTransaction writes one ledger row and returns it with the assigned id.
// Callers invoke this only after the corresponding stock mutation succeeded.
func (db *DB) AppendTransaction(toolID int64, action domain.Action, user string, workerType domain.WorkerType, reason string) (domain.LedgerEntry, error) {
	if workerType == "" {
		workerType = domain.DefaultWorkerType
	}
	ts := now()
	res, err := db.db.Exec(`
		INSERT INTO transactions (tool_id, action, user, worker_type, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, toolID, string(action), user, string(workerType), nullable(reason), ts)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	return domain.LedgerEntry{
		ID:         id,
		ToolID:     toolID,
		Action:     action,
		User:       user,
		WorkerType: workerType,
		Reason:     reason,
		Timestamp:  parseTime(ts),
	}, nil
}

// ─── Ledger Reads ───────────────────────────────────────────────────────────

// QueryTransactions returns ledger entries newest first, joined with the tool
// name. Entries whose tool has been deleted keep their row and get the
// placeholder name "(deleted)".
func (db *DB) QueryTransactions(filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	q := `
		SELECT tr.id, tr.tool_id, IFNULL(tl.name, '(deleted)'),
		       tr.action, tr.user, tr.worker_type, IFNULL(tr.reason, ''), tr.timestamp
		FROM transactions tr
		LEFT JOIN tools tl ON tr.tool_id = tl.id
		WHERE 1=1`
	var args []any

	if filter.User != "" {
		q += ` AND tr.user LIKE ?`
		args = append(args, "%"+filter.User+"%")
	}
	if filter.Action != "" {
		q += ` AND tr.action = ?`
		args = append(args, string(filter.Action))
	}
	if !filter.From.IsZero() && !filter.To.IsZero() {
		q += ` AND DATE(tr.timestamp) BETWEEN ? AND ?`
		args = append(args, filter.From.Format("2006-01-02"), filter.To.Format("2006-01-02"))
	}
	q += ` ORDER BY tr.id DESC`

	rows, err := db.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var action, workerType, ts string
		if err := rows.Scan(&e.ID, &e.ToolID, &e.ToolName, &action, &e.User, &workerType, &e.Reason, &ts); err != nil {
			return nil, err
		}
		e.Action = domain.Action(action)
		e.WorkerType = domain.WorkerType(workerType)
		e.Timestamp = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListDisposals returns disposal records newest first.
func (db *DB) ListDisposals() ([]domain.DisposalRecord, error) {
	rows, err := db.db.Query(`
		SELECT id, tool_id, quantity, IFNULL(reason, ''), timestamp
		FROM disposals ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DisposalRecord
	for rows.Next() {
		var d domain.DisposalRecord
		var ts string
		if err := rows.Scan(&d.ID, &d.ToolID, &d.Quantity, &d.Reason, &ts); err != nil {
			return nil, err
		}
		d.Timestamp = parseTime(ts)
		records = append(records, d)
	}
	return records, rows.Err()
}

// ─── Aggregations ───────────────────────────────────────────────────────────
// Each aggregation is a single query, so it reflects one consistent point in
// ledger time: no entry counted twice, none missing.

// CountByAction returns the number of ledger entries per action.
func (db *DB) CountByAction() (map[domain.Action]int, error) {
	rows, err := db.db.Query(`
		SELECT action, COUNT(*) FROM transactions GROUP BY action
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Action]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[domain.Action(action)] = n
	}
	return counts, rows.Err()
}

// CountByWorkerType returns per-worker-type counts for one action
// (the borrowing and disposal breakdowns shown by the presentation layer).
func (db *DB) CountByWorkerType(action domain.Action) (map[domain.WorkerType]int, error) {
	rows, err := db.db.Query(`
		SELECT worker_type, COUNT(*) FROM transactions
		WHERE action = ? GROUP BY worker_type
	`, string(action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.WorkerType]int)
	for rows.Next() {
		var wt string
		var n int
		if err := rows.Scan(&wt, &n); err != nil {
			return nil, err
		}
		counts[domain.WorkerType(wt)] = n
	}
	return counts, rows.Err()
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
