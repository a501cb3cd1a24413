// Package scanner bridges an always-on frame decode loop and a strictly
// serialized apply step.
//
// Pipeline stages, per decoded frame:
//  1. Decode    — the external decoder yields zero or more code strings
//  2. Debounce  — repeats of a code within the window are suppressed
//  3. Dispatch  — surviving codes are paired with the session context
//     (captured by value) and enqueued as intents
//  4. Apply     — one consumer drains the queue in FIFO order; it is the
//     only scan-originated writer of stock counters and ledger rows
//
// Stopping is cooperative: the producer observes cancellation at the next
// safe point (after the current frame) and already-queued intents still
// drain through Apply before Stop returns. A blocking device read can delay
// shutdown; callers tolerate a bounded wait, never a forced abort.
package scanner

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/borrowmate/borrowmate/internal/domain"
	"github.com/borrowmate/borrowmate/internal/infra/observability"
)

// ApplyFunc executes one intent against the inventory and ledger.
type ApplyFunc func(domain.Intent) domain.ScanResult

// Config controls pipeline behavior.
type Config struct {
	DebounceWindow time.Duration // minimum gap between accepted repeats of a code (default: 2s)
	QueueSize      int           // intent hand-off buffer between producer and consumer (default: 64)
	ResultBuffer   int           // result fan-out buffer for the presentation layer (default: 64)
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		DebounceWindow: 2 * time.Second,
		QueueSize:      64,
		ResultBuffer:   64,
	}
}

// Pipeline is the scan event state machine: Idle ↔ Scanning.
type Pipeline struct {
	mu      sync.Mutex
	cfg     Config
	source  domain.FrameSource
	decoder domain.Decoder
	apply   ApplyFunc
	deb     *debouncer

	session   domain.SessionContext
	running   bool
	sessionID string
	cancel    context.CancelFunc
	drained   chan struct{}
	results   chan domain.ScanResult
}

// New assembles a pipeline. The debouncer's last-seen map persists across
// Start/Stop cycles, matching the physical reality that a re-scan right
// after a restart is still the same scan.
func New(cfg Config, source domain.FrameSource, decoder domain.Decoder, apply ApplyFunc) *Pipeline {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultConfig().DebounceWindow
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ResultBuffer <= 0 {
		cfg.ResultBuffer = DefaultConfig().ResultBuffer
	}
	return &Pipeline{
		cfg:     cfg,
		source:  source,
		decoder: decoder,
		apply:   apply,
		deb:     newDebouncer(cfg.DebounceWindow),
		results: make(chan domain.ScanResult, cfg.ResultBuffer),
	}
}

// ─── Session Context ────────────────────────────────────────────────────────

// SetSession replaces the ambient session context. Intents dispatched after
// this call carry the new context; intents already queued keep the snapshot
// they were dispatched with.
func (p *Pipeline) SetSession(sc domain.SessionContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sc.WorkerType == "" {
		sc.WorkerType = domain.DefaultWorkerType
	}
	p.session = sc
}

// Session returns the current session context snapshot.
func (p *Pipeline) Session() domain.SessionContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Start moves Idle → Scanning. Refused with ErrUserRequired when the session
// has no user. Starting an already-scanning pipeline is a no-op (the toggle
// guard), not an error.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.session.User == "" {
		return domain.ErrUserRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	intents := make(chan domain.Intent, p.cfg.QueueSize)
	p.cancel = cancel
	p.drained = make(chan struct{})
	p.running = true
	p.sessionID = uuid.NewString()

	go p.produce(ctx, intents)
	go p.consume(intents, p.drained)

	log.Printf("[scanner] session %s started user=%q mode=%s", p.sessionID, p.session.User, p.session.Mode)
	return nil
}

// Stop moves Scanning → Idle and blocks until queued intents have drained
// through Apply. Stopping an idle pipeline is a no-op.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	drained := p.drained
	sessionID := p.sessionID
	p.mu.Unlock()

	cancel()
	<-drained
	log.Printf("[scanner] session %s stopped", sessionID)
}

// Running reports whether the pipeline is in the Scanning state.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SessionID returns the identifier of the current (or last) scan session.
func (p *Pipeline) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// Results is the subscription surface for the presentation layer. When no
// subscriber keeps up, results are dropped rather than blocking Apply.
func (p *Pipeline) Results() <-chan domain.ScanResult {
	return p.results
}

// ─── Producer ───────────────────────────────────────────────────────────────

// produce runs the Decode → Debounce → Dispatch loop until cancellation or
// source exhaustion, then closes the intent queue so the consumer can drain.
func (p *Pipeline) produce(ctx context.Context, intents chan<- domain.Intent) {
	defer close(intents)

	for {
		frame, err := p.source.NextFrame(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				log.Printf("[scanner] frame source failed: %v", err)
			}
			p.markStopped()
			return
		}
		observability.ScanFrames.Inc()

		for _, code := range p.decoder.Decode(frame) {
			observability.ScanCodes.Inc()
			if !p.deb.Allow(code) {
				observability.ScanDebounced.Inc()
				continue
			}

			// Prefer the hand-off while the queue has room; cancellation
			// wins only when the send would block. A code that cleared the
			// debounce window is never dropped by a racing Stop.
			intent := domain.Intent{Code: code, Session: p.Session(), At: time.Now()}
			select {
			case intents <- intent:
				observability.ScanQueueDepth.Set(float64(len(intents)))
			default:
				select {
				case intents <- intent:
					observability.ScanQueueDepth.Set(float64(len(intents)))
				case <-ctx.Done():
					p.markStopped()
					return
				}
			}
		}
	}
}

// markStopped flips the state to Idle when the producer exits on its own
// (device failure or source exhaustion). Stop() has already done this in the
// cooperative case.
func (p *Pipeline) markStopped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.running = false
		p.cancel()
	}
}

// ─── Consumer ───────────────────────────────────────────────────────────────

// consume applies intents strictly one at a time, in arrival order. A failed
// intent produces an error result for that intent only; the loop continues.
func (p *Pipeline) consume(intents <-chan domain.Intent, drained chan<- struct{}) {
	defer close(drained)

	for intent := range intents {
		res := p.apply(intent)
		observability.ScanQueueDepth.Set(float64(len(intents)))

		if res.Err != nil {
			observability.ScanIntents.WithLabelValues("error").Inc()
			log.Printf("[scanner] intent code=%q failed: %v", intent.Code, res.Err)
		} else {
			observability.ScanIntents.WithLabelValues("ok").Inc()
		}

		select {
		case p.results <- res:
		default: // slow subscriber — never block the apply path
		}
	}
}
