// Tool stock operations. Every mutation is a single guarded statement or an
// explicit transaction, so no caller ever observes a partially applied change
// and the invariant 0 ≤ available_qty ≤ total_qty holds at every commit point.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Tool Operations ────────────────────────────────────────────────────────

// InsertTool creates a tool with available_qty = total_qty = qty.
// A duplicate code is a no-op, not an error: created is false and the
// returned id is the existing row's.
func (db *DB) InsertTool(name, code string, qty int, imageRef string) (id int64, created bool, err error) {
	res, err := db.db.Exec(`
		INSERT OR IGNORE INTO tools (name, code, total_qty, available_qty, image_ref)
		VALUES (?, ?, ?, ?, ?)
	`, name, code, qty, qty, imageRef)
	if err != nil {
		return 0, false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		err = db.db.QueryRow(`SELECT id FROM tools WHERE code = ?`, code).Scan(&id)
		return id, false, err
	}
	id, err = res.LastInsertId()
	return id, true, err
}

// GetTool retrieves a tool by id.
func (db *DB) GetTool(id int64) (domain.Tool, error) {
	return db.scanTool(db.db.QueryRow(`
		SELECT id, name, code, total_qty, available_qty, IFNULL(image_ref, '')
		FROM tools WHERE id = ?
	`, id))
}

// GetToolByCode retrieves a tool by its barcode payload.
func (db *DB) GetToolByCode(code string) (domain.Tool, error) {
	return db.scanTool(db.db.QueryRow(`
		SELECT id, name, code, total_qty, available_qty, IFNULL(image_ref, '')
		FROM tools WHERE code = ?
	`, code))
}

func (db *DB) scanTool(row *sql.Row) (domain.Tool, error) {
	var t domain.Tool
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.TotalQty, &t.AvailableQty, &t.ImageRef)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Tool{}, domain.ErrToolNotFound
	}
	return t, err
}

// ListTools returns all tools ordered by id.
func (db *DB) ListTools() ([]domain.Tool, error) {
	rows, err := db.db.Query(`
		SELECT id, name, code, total_qty, available_qty, IFNULL(image_ref, '')
		FROM tools ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []domain.Tool
	for rows.Next() {
		var t domain.Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.TotalQty, &t.AvailableQty, &t.ImageRef); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// BorrowTool decrements available_qty by one. The guard in the UPDATE makes
// the check-and-decrement a single atomic statement.
func (db *DB) BorrowTool(id int64) error {
	res, err := db.db.Exec(`
		UPDATE tools SET available_qty = available_qty - 1
		WHERE id = ? AND available_qty > 0
	`, id)
	if err != nil {
		return err
	}
	return db.explainNoEffect(res, id, domain.ErrOutOfStock)
}

// ReturnTool increments available_qty by one, refusing when the pool is full.
func (db *DB) ReturnTool(id int64) error {
	res, err := db.db.Exec(`
		UPDATE tools SET available_qty = available_qty + 1
		WHERE id = ? AND available_qty < total_qty
	`, id)
	if err != nil {
		return err
	}
	return db.explainNoEffect(res, id, domain.ErrAlreadyFull)
}

// AdjustAvailable applies a manual stock correction, clamping the result into
// [0, total_qty]. Clamping is silent — this is the escape hatch for manual
// corrections, not an error path.
func (db *DB) AdjustAvailable(id int64, delta int) error {
	res, err := db.db.Exec(`
		UPDATE tools
		SET available_qty = MAX(0, MIN(total_qty, available_qty + ?))
		WHERE id = ?
	`, delta, id)
	if err != nil {
		return err
	}
	return db.explainNoEffect(res, id, domain.ErrToolNotFound)
}

// IncreaseCapacity raises total_qty and available_qty by addQty. The MIN
// clamp only matters if a concurrent disposal raced the read.
func (db *DB) IncreaseCapacity(id int64, addQty int) error {
	res, err := db.db.Exec(`
		UPDATE tools
		SET total_qty     = total_qty + ?,
		    available_qty = MIN(total_qty + ?, available_qty + ?)
		WHERE id = ?
	`, addQty, addQty, addQty, id)
	if err != nil {
		return err
	}
	return db.explainNoEffect(res, id, domain.ErrToolNotFound)
}

// DisposeTool permanently removes qty units from a tool's total, clamping
// available_qty down to the new total when needed. The stock mutation, the
// disposals row, and the Dispose ledger entry commit in one transaction, so
// no reader ever sees a disposal without its audit trail.
func (db *DB) DisposeTool(id int64, qty int, reason, user string, workerType domain.WorkerType) error {
	if workerType == "" {
		workerType = domain.DefaultWorkerType
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total, avail int
	err = tx.QueryRow(`SELECT total_qty, available_qty FROM tools WHERE id = ?`, id).Scan(&total, &avail)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrToolNotFound
	}
	if err != nil {
		return err
	}
	if qty > total {
		return domain.ErrExceedsStock
	}

	newTotal := total - qty
	newAvail := avail
	if newAvail > newTotal {
		newAvail = newTotal
	}

	ts := now()
	if _, err := tx.Exec(`
		UPDATE tools SET total_qty = ?, available_qty = ? WHERE id = ?
	`, newTotal, newAvail, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO disposals (tool_id, quantity, reason, timestamp)
		VALUES (?, ?, ?, ?)
	`, id, qty, reason, ts); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO transactions (tool_id, action, user, worker_type, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, string(domain.ActionDispose), user, string(workerType), nullable(reason), ts); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteTool removes a tool. Ledger rows referencing it are left in place;
// reads substitute a placeholder name for the orphaned reference.
func (db *DB) DeleteTool(id int64) error {
	res, err := db.db.Exec(`DELETE FROM tools WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrToolNotFound
	}
	return nil
}

// explainNoEffect distinguishes "guard refused" from "row missing" after a
// guarded UPDATE touched zero rows.
func (db *DB) explainNoEffect(res sql.Result, id int64, refused error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var exists int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM tools WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check tool existence: %w", err)
	}
	if exists == 0 {
		return domain.ErrToolNotFound
	}
	return refused
}
