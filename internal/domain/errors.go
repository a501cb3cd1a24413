package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Every one of them is
// recoverable at the call site; nothing here is fatal to the process.

var (
	// Inventory errors
	ErrToolNotFound    = errors.New("tool not found")
	ErrOutOfStock      = errors.New("no units available to borrow")
	ErrAlreadyFull     = errors.New("all units already returned")
	ErrExceedsStock    = errors.New("disposal quantity exceeds total stock")
	ErrInvalidQuantity = errors.New("quantity must be a positive number")

	// Scan pipeline errors
	ErrUserRequired = errors.New("scan start refused: no active user in session")
)
