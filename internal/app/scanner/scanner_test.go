package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Debouncer ──────────────────────────────────────────────────────────────

func TestDebouncer_SuppressesRepeatsInWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := newDebouncer(2 * time.Second)
	d.now = func() time.Time { return clock }

	if !d.Allow("H100") {
		t.Fatal("first scan should pass")
	}

	clock = clock.Add(500 * time.Millisecond)
	if d.Allow("H100") {
		t.Error("repeat inside window should be suppressed")
	}

	clock = clock.Add(1600 * time.Millisecond) // 2.1s after the accepted scan
	if !d.Allow("H100") {
		t.Error("scan after window should pass")
	}
}

func TestDebouncer_SuppressionDoesNotExtendWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := newDebouncer(2 * time.Second)
	d.now = func() time.Time { return clock }

	d.Allow("H100")

	// A continuous frame stream keeps hitting the window. Suppressed scans
	// must not refresh the timestamp, or the code would be stuck forever.
	for i := 0; i < 10; i++ {
		clock = clock.Add(300 * time.Millisecond)
		if clock.Sub(time.Unix(1000, 0)) < 2*time.Second {
			if d.Allow("H100") {
				t.Fatalf("scan at +%v should be suppressed", clock.Sub(time.Unix(1000, 0)))
			}
		}
	}

	clock = time.Unix(1000, 0).Add(2100 * time.Millisecond)
	if !d.Allow("H100") {
		t.Error("scan past the original window should pass")
	}
}

func TestDebouncer_CodesAreIndependent(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := newDebouncer(2 * time.Second)
	d.now = func() time.Time { return clock }

	if !d.Allow("H100") || !d.Allow("W220") {
		t.Fatal("different codes should both pass")
	}
	if d.Allow("H100") || d.Allow("W220") {
		t.Error("repeats of either code should be suppressed")
	}
}

// ─── Test Doubles ───────────────────────────────────────────────────────────

// chanSource feeds frames from a channel; closing the channel is EOF.
type chanSource struct {
	frames chan domain.Frame
}

func newChanSource() *chanSource {
	return &chanSource{frames: make(chan domain.Frame, 64)}
}

func (s *chanSource) NextFrame(ctx context.Context) (domain.Frame, error) {
	// Buffered frames win over cancellation, mirroring a device that has
	// already captured them.
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	default:
	}
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSource) Close() error { return nil }

type recorder struct {
	mu      sync.Mutex
	intents []domain.Intent
	fail    map[string]error
	delay   time.Duration
}

func (r *recorder) apply(intent domain.Intent) domain.ScanResult {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
	if err := r.fail[intent.Code]; err != nil {
		return domain.ScanResult{Intent: intent, Err: err}
	}
	return domain.ScanResult{Intent: intent, ToolName: "tool-" + intent.Code}
}

func (r *recorder) applied() []domain.Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Intent(nil), r.intents...)
}

func newTestPipeline(t *testing.T, rec *recorder) (*Pipeline, *chanSource) {
	t.Helper()
	src := newChanSource()
	p := New(Config{DebounceWindow: time.Millisecond, QueueSize: 8}, src, LineDecoder{}, rec.apply)
	t.Cleanup(p.Stop)
	return p, src
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// ─── Pipeline Lifecycle ─────────────────────────────────────────────────────

func TestPipeline_StartRequiresUser(t *testing.T) {
	p, _ := newTestPipeline(t, &recorder{})

	err := p.Start()
	if !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("Start() without user: err = %v, want ErrUserRequired", err)
	}
	if p.Running() {
		t.Error("pipeline should stay idle after refused start")
	}
}

func TestPipeline_StartWhileRunningIsNoOp(t *testing.T) {
	p, _ := newTestPipeline(t, &recorder{})
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	id := p.SessionID()

	if err := p.Start(); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if p.SessionID() != id {
		t.Error("second Start() must not replace the running session")
	}
}

func TestPipeline_AppliesScannedCodes(t *testing.T) {
	rec := &recorder{}
	p, src := newTestPipeline(t, rec)
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	src.frames <- domain.Frame("H100\n")
	src.frames <- domain.Frame("W220\n")

	waitFor(t, "two applied intents", func() bool { return len(rec.applied()) == 2 })

	got := rec.applied()
	if got[0].Code != "H100" || got[1].Code != "W220" {
		t.Errorf("codes = [%s %s], want [H100 W220]", got[0].Code, got[1].Code)
	}
	if got[0].Session.User != "alex" {
		t.Errorf("Session.User = %q, want alex", got[0].Session.User)
	}
}

func TestPipeline_SessionCapturedAtDispatch(t *testing.T) {
	rec := &recorder{}
	p, src := newTestPipeline(t, rec)
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	src.frames <- domain.Frame("H100\n")
	waitFor(t, "first intent", func() bool { return len(rec.applied()) == 1 })

	// Mid-scan mode flip affects only later dispatches.
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionReturn})
	src.frames <- domain.Frame("W220\n")
	waitFor(t, "second intent", func() bool { return len(rec.applied()) == 2 })

	got := rec.applied()
	if got[0].Session.Mode != domain.ActionBorrow {
		t.Errorf("first intent mode = %s, want borrow", got[0].Session.Mode)
	}
	if got[1].Session.Mode != domain.ActionReturn {
		t.Errorf("second intent mode = %s, want return", got[1].Session.Mode)
	}
}

func TestPipeline_FailedIntentDoesNotHalt(t *testing.T) {
	rec := &recorder{fail: map[string]error{"BAD": domain.ErrOutOfStock}}
	p, src := newTestPipeline(t, rec)
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	src.frames <- domain.Frame("BAD\n")
	src.frames <- domain.Frame("H100\n")

	waitFor(t, "both intents applied", func() bool { return len(rec.applied()) == 2 })

	var results []domain.ScanResult
	for len(results) < 2 {
		select {
		case res := <-p.Results():
			results = append(results, res)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out with %d results", len(results))
		}
	}
	if !errors.Is(results[0].Err, domain.ErrOutOfStock) {
		t.Errorf("first result err = %v, want ErrOutOfStock", results[0].Err)
	}
	if !results[1].Ok() {
		t.Errorf("second result err = %v, want nil", results[1].Err)
	}
}

func TestPipeline_StopDrainsQueuedIntents(t *testing.T) {
	rec := &recorder{delay: 10 * time.Millisecond} // keep intents queued behind the consumer
	p, src := newTestPipeline(t, rec)
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		src.frames <- domain.Frame(fmt.Sprintf("T%d\n", i))
	}
	// Once the source is drained every intent is dispatched; the slow
	// consumer still has most of them queued when Stop arrives.
	waitFor(t, "producer to drain the source", func() bool { return len(src.frames) == 0 })

	p.Stop()

	// Stop must not return before queued intents have been applied.
	if got := len(rec.applied()); got != 5 {
		t.Fatalf("applied = %d intents after Stop, want 5", got)
	}
	if p.Running() {
		t.Error("pipeline should be idle after Stop")
	}
}

func TestProduce_CancelDoesNotDropDispatchableCodes(t *testing.T) {
	rec := &recorder{}
	src := newChanSource()
	p := New(Config{DebounceWindow: time.Millisecond, QueueSize: 8}, src, LineDecoder{}, rec.apply)
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	for _, code := range []string{"H100", "W220", "D300"} {
		src.frames <- domain.Frame(code + "\n")
	}
	close(src.frames)

	// Cancellation is already pending, but the queue has room: every code
	// that cleared the debounce window must still be handed off.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	intents := make(chan domain.Intent, 8)
	p.produce(ctx, intents)

	var got []string
	for intent := range intents {
		got = append(got, intent.Code)
	}
	if len(got) != 3 {
		t.Fatalf("dispatched %d intents %v, want 3", len(got), got)
	}
}

func TestPipeline_SourceExhaustionStops(t *testing.T) {
	rec := &recorder{}
	p, src := newTestPipeline(t, rec)
	p.SetSession(domain.SessionContext{User: "alex", Mode: domain.ActionBorrow})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	src.frames <- domain.Frame("H100\n")
	close(src.frames)

	waitFor(t, "pipeline to stop on EOF", func() bool { return !p.Running() })
	waitFor(t, "queued intent to apply", func() bool { return len(rec.applied()) == 1 })
}

// ─── Line Decoding ──────────────────────────────────────────────────────────

func TestLineDecoder(t *testing.T) {
	d := LineDecoder{}

	if got := d.Decode(domain.Frame("  H100 \n")); len(got) != 1 || got[0] != "H100" {
		t.Errorf("Decode = %v, want [H100]", got)
	}
	if got := d.Decode(domain.Frame("\n")); got != nil {
		t.Errorf("Decode(blank) = %v, want nil", got)
	}
}

func TestLineSource(t *testing.T) {
	src := NewLineSource(strings.NewReader("H100\nW220"))

	f, err := src.NextFrame(context.Background())
	if err != nil {
		t.Fatalf("NextFrame() error: %v", err)
	}
	if string(f) != "H100\n" {
		t.Errorf("frame = %q, want H100 line", f)
	}

	// Final line without a trailing newline still yields a frame.
	f, err = src.NextFrame(context.Background())
	if err != nil {
		t.Fatalf("NextFrame() error: %v", err)
	}
	if string(f) != "W220" {
		t.Errorf("frame = %q, want W220", f)
	}

	if _, err := src.NextFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestLineSource_CancelledContext(t *testing.T) {
	src := NewLineSource(strings.NewReader("H100\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.NextFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
