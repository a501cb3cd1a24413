package scanner

import (
	"sync"
	"time"
)

// ─── Debouncer ──────────────────────────────────────────────────────────────
// One physical scan yields the same barcode across many consecutive frames.
// The debouncer suppresses repeats of a code seen within the window, so one
// scan registers as exactly one intent.

type debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time
	now      func() time.Time // injectable for tests
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:   window,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether the code should pass through, updating the last-seen
// timestamp when it does. A code inside the window is dropped without
// touching its timestamp, so a continuous stream of frames does not extend
// the suppression forever.
func (d *debouncer) Allow(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSeen[code]; ok && now.Sub(last) < d.window {
		return false
	}
	d.lastSeen[code] = now
	return true
}
