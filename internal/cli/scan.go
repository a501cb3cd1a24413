package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/borrowmate/borrowmate/internal/app/scanner"
	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Scan Command ───────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("user", "u", "", "actor name (required)")
	scanCmd.Flags().StringP("mode", "m", "borrow", "borrow or return")
	scanCmd.Flags().String("worker-type", "", "worker type classification")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan codes from stdin and apply borrow/return movements",
	Long: `Read barcode payloads line by line from stdin and apply them through the
debounced scan pipeline. Repeats of a code within the debounce window are
suppressed. Ctrl+C or end of input stops scanning; queued intents still
drain before exit.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	mode, _ := cmd.Flags().GetString("mode")
	workerType, _ := cmd.Flags().GetString("worker-type")

	action := domain.Action(mode)
	if action != domain.ActionBorrow && action != domain.ActionReturn {
		return fmt.Errorf("--mode must be borrow or return, got %q", mode)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := scanner.New(scanner.Config{
		DebounceWindow: cfg.Scanner.DebounceWindow.Duration,
		QueueSize:      cfg.Scanner.QueueSize,
	}, scanner.NewLineSource(os.Stdin), scanner.LineDecoder{}, inv.Apply)

	pipeline.SetSession(domain.SessionContext{
		User:       user,
		Mode:       action,
		WorkerType: domain.WorkerType(workerType),
	})
	if err := pipeline.Start(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Scanning in %s mode as %q. One code per line, Ctrl+C to stop.\n", action, user)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-pipeline.Results():
			printResult(res)
		case <-sigCh:
			pipeline.Stop()
			drainResults(pipeline)
			return nil
		case <-ticker.C:
			// The producer stops itself when stdin hits EOF.
			if !pipeline.Running() {
				pipeline.Stop()
				drainResults(pipeline)
				return nil
			}
		}
	}
}

func printResult(res domain.ScanResult) {
	if res.Err != nil {
		fmt.Fprintf(os.Stdout, "  ✗ %s: %v\n", res.Intent.Code, res.Err)
		return
	}
	fmt.Fprintf(os.Stdout, "  ✓ %s %s (%s)\n", res.Intent.Session.Mode, res.ToolName, res.Intent.Code)
}

func drainResults(p *scanner.Pipeline) {
	for {
		select {
		case res := <-p.Results():
			printResult(res)
		default:
			return
		}
	}
}
