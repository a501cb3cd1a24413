// Package cli implements the borrowmate command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/borrowmate/borrowmate/internal/app/inventory"
	"github.com/borrowmate/borrowmate/internal/daemon"
	"github.com/borrowmate/borrowmate/internal/infra/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "borrowmate",
	Short: "Tool crib inventory with a barcode scan pipeline",
	Long: `BorrowMate tracks a pool of physical tools checked out and returned by
workers, retires damaged units, and keeps an append-only audit ledger of
every movement. Stock lives in a single local SQLite store; scan events
flow through a debounced producer/consumer pipeline with one serialized
writer.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.borrowmate/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Shared Setup ───────────────────────────────────────────────────────────

// loadConfig resolves the effective configuration for this invocation.
func loadConfig() (daemon.Config, error) {
	path := configPath
	if path == "" {
		path = daemon.DefaultPath()
	}
	return daemon.Load(path)
}

// openInventory opens the local store and wraps it in the serialized writer.
// The returned closer must be deferred by the caller.
func openInventory() (*inventory.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return inventory.New(db), func() { db.Close() }, nil
}
