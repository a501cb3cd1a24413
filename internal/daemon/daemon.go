package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/borrowmate/borrowmate/internal/api"
	"github.com/borrowmate/borrowmate/internal/app/inventory"
	"github.com/borrowmate/borrowmate/internal/app/scanner"
	"github.com/borrowmate/borrowmate/internal/domain"
	"github.com/borrowmate/borrowmate/internal/infra/sqlite"
)

// ─── Daemon ─────────────────────────────────────────────────────────────────
// The daemon owns the single local store and the one scan pipeline, and
// serves the HTTP presentation surface on the loopback interface. A wedge
// scanner attached to the crib workstation feeds the pipeline through
// stdin; the frontend controls sessions via the /api/scan endpoints.

// Daemon is the long-running BorrowMate process.
type Daemon struct {
	cfg      Config
	db       *sqlite.DB
	pipeline *scanner.Pipeline
	srv      *http.Server
}

// New opens the store and wires the inventory service, scan pipeline, and
// HTTP server. Nothing is started until Run.
func New(cfg Config) (*Daemon, error) {
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	inv := inventory.New(db)
	pipeline := scanner.New(scanner.Config{
		DebounceWindow: cfg.Scanner.DebounceWindow.Duration,
		QueueSize:      cfg.Scanner.QueueSize,
	}, scanner.NewLineSource(os.Stdin), scanner.LineDecoder{}, inv.Apply)
	pipeline.SetSession(domain.SessionContext{
		Mode:       domain.ActionBorrow,
		WorkerType: domain.WorkerType(cfg.Scanner.DefaultWorkerType),
	})

	server := api.NewServer(inv, pipeline)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	return &Daemon{
		cfg:      cfg,
		db:       db,
		pipeline: pipeline,
		srv: &http.Server{
			Addr:              addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down in order: HTTP first,
// then the pipeline (draining queued intents), then the store.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on http://%s store=%s", d.srv.Addr, d.cfg.Store.Path)
		if err := d.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		d.shutdown()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Printf("[daemon] shutting down")
		d.shutdown()
		return nil
	}
}

func (d *Daemon) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[daemon] http shutdown: %v", err)
	}

	d.pipeline.Stop()

	if err := d.db.Close(); err != nil {
		log.Printf("[daemon] close store: %v", err)
	}
	log.Printf("[daemon] stopped")
}
