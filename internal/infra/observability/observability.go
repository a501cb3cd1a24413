// Package observability holds the Prometheus metrics for the inventory
// ledger and the scan pipeline. Exposed on /metrics when enabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Inventory Metrics ──────────────────────────────────────────────────────

// Movements counts applied stock movements by action and result.
var Movements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "borrowmate",
	Subsystem: "inventory",
	Name:      "movements_total",
	Help:      "Total stock movements by action and result.",
}, []string{"action", "result"})

// LedgerAppends counts rows written to the transaction ledger.
var LedgerAppends = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "borrowmate",
	Subsystem: "ledger",
	Name:      "appends_total",
	Help:      "Total rows appended to the transaction ledger.",
})

// ─── Scan Pipeline Metrics ──────────────────────────────────────────────────

// ScanFrames counts frames pulled from the capture source.
var ScanFrames = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "borrowmate",
	Subsystem: "scanner",
	Name:      "frames_total",
	Help:      "Total frames processed by the scan pipeline.",
})

// ScanCodes counts decoded barcode payloads before debouncing.
var ScanCodes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "borrowmate",
	Subsystem: "scanner",
	Name:      "codes_decoded_total",
	Help:      "Total barcode payloads decoded from frames.",
})

// ScanDebounced counts codes suppressed by the debounce window.
var ScanDebounced = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "borrowmate",
	Subsystem: "scanner",
	Name:      "codes_debounced_total",
	Help:      "Total codes suppressed inside the debounce window.",
})

// ScanIntents counts intents applied by the serialized consumer, by result.
var ScanIntents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "borrowmate",
	Subsystem: "scanner",
	Name:      "intents_total",
	Help:      "Total scan intents applied, by result.",
}, []string{"result"})

// ScanQueueDepth tracks the current intent queue depth.
var ScanQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "borrowmate",
	Subsystem: "scanner",
	Name:      "queue_depth",
	Help:      "Current number of intents waiting for the consumer.",
})
