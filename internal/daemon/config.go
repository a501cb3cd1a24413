// Package daemon holds the BorrowMate runtime configuration, loaded from
// ~/.borrowmate/config.toml with sensible local-only defaults.
package daemon

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	Store   StoreConfig   `toml:"store"`
	Scanner ScannerConfig `toml:"scanner"`
	API     APIConfig     `toml:"api"`
}

// StoreConfig locates the single local SQLite store.
type StoreConfig struct {
	Path string `toml:"path"` // directory holding borrowmate.db
}

// ScannerConfig controls the scan event pipeline.
type ScannerConfig struct {
	DebounceWindow    duration `toml:"debounce_window"`     // default: 2s
	QueueSize         int      `toml:"queue_size"`          // default: 64
	DefaultWorkerType string   `toml:"default_worker_type"` // default: metalworker
}

// APIConfig controls the local HTTP presentation surface.
type APIConfig struct {
	Host    string `toml:"host"` // default: 127.0.0.1 — single local store, no remote access
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"` // expose /metrics
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path: defaultStoreDir(),
		},
		Scanner: ScannerConfig{
			DebounceWindow:    duration{2 * time.Second},
			QueueSize:         64,
			DefaultWorkerType: "metalworker",
		},
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8090,
			Metrics: true,
		},
	}
}

// Load reads the config file at path, overlaying the defaults. A missing
// file is not an error — defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if env := os.Getenv("BORROWMATE_HOME"); env != "" {
		return filepath.Join(env, "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".borrowmate", "config.toml")
}

func defaultStoreDir() string {
	if env := os.Getenv("BORROWMATE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".borrowmate")
}

// duration wraps time.Duration for TOML decoding ("2s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements toml text unmarshaling.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
