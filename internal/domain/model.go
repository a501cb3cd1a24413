// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Tool Types ─────────────────────────────────────────────────────────────

// Tool is a type of physical item tracked by unique barcode, with total and
// available unit counts. Invariant: 0 ≤ AvailableQty ≤ TotalQty holds before
// and after every mutation.
type Tool struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	TotalQty     int    `json:"total_qty"`
	AvailableQty int    `json:"available_qty"`
	ImageRef     string `json:"image_ref,omitempty"`
}

// OutCount returns the number of units currently checked out.
func (t Tool) OutCount() int {
	return t.TotalQty - t.AvailableQty
}

// ─── Ledger Types ───────────────────────────────────────────────────────────

// Action identifies a ledger entry's movement type.
type Action string

const (
	ActionBorrow  Action = "borrow"
	ActionReturn  Action = "return"
	ActionDispose Action = "dispose"
)

// Valid reports whether the action is one of the known movement types.
func (a Action) Valid() bool {
	switch a {
	case ActionBorrow, ActionReturn, ActionDispose:
		return true
	}
	return false
}

// WorkerType classifies the actor performing a movement.
type WorkerType string

const (
	WorkerMetal WorkerType = "metalworker"
	WorkerMason WorkerType = "mason"
)

// DefaultWorkerType is used when the presentation layer supplies none.
const DefaultWorkerType = WorkerMetal

// LedgerEntry is one row of the append-only audit trail. Entries are never
// updated or deleted; IDs increase strictly in append order.
type LedgerEntry struct {
	ID         int64      `json:"id"`
	ToolID     int64      `json:"tool_id"`
	ToolName   string     `json:"tool_name,omitempty"` // joined at read time, "(deleted)" for orphans
	Action     Action     `json:"action"`
	User       string     `json:"user"`
	WorkerType WorkerType `json:"worker_type"`
	Reason     string     `json:"reason,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// DisposalRecord carries the quantity-level detail of a disposal that the
// generic LedgerEntry does not: how many units permanently left the pool.
// Written in the same transaction as the matching Dispose entry.
type DisposalRecord struct {
	ID        int64     `json:"id"`
	ToolID    int64     `json:"tool_id"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerFilter narrows a ledger query. Zero values match everything.
// From/To bound the entry date, inclusive on both ends.
type LedgerFilter struct {
	User   string
	Action Action
	From   time.Time
	To     time.Time
}

// ─── Scan Types ─────────────────────────────────────────────────────────────

// SessionContext is the immutable per-operation snapshot supplied by the
// presentation layer: who is scanning, in which mode, and their worker type.
// It is captured by value at dispatch time, never by later reference.
type SessionContext struct {
	User       string     `json:"user"`
	Mode       Action     `json:"mode"` // ActionBorrow or ActionReturn
	WorkerType WorkerType `json:"worker_type"`
}

// Intent is a debounced, context-enriched request to apply one borrow or
// return movement, produced by the scan pipeline.
type Intent struct {
	Code    string         `json:"code"`
	Session SessionContext `json:"session"`
	At      time.Time      `json:"at"`
}

// ScanResult is the per-intent outcome surfaced to the presentation layer.
// A non-nil Err never stops the pipeline; it concerns this intent only.
type ScanResult struct {
	Intent   Intent `json:"intent"`
	ToolName string `json:"tool_name,omitempty"`
	Err      error  `json:"-"`
}

// Ok reports whether the intent applied cleanly.
func (r ScanResult) Ok() bool { return r.Err == nil }
