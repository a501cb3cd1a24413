package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Ledger Commands ────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)

	ledgerListCmd.Flags().StringP("user", "u", "", "filter by user (substring match)")
	ledgerListCmd.Flags().StringP("action", "a", "", "filter by action: borrow, return, dispose")
	ledgerListCmd.Flags().String("from", "", "start date, YYYY-MM-DD (inclusive)")
	ledgerListCmd.Flags().String("to", "", "end date, YYYY-MM-DD (inclusive)")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Read the append-only movement ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries, newest first",
	RunE:  runLedgerList,
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	action, _ := cmd.Flags().GetString("action")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	filter := domain.LedgerFilter{User: user, Action: domain.Action(action)}
	if fromStr != "" {
		t, err := time.Parse(time.DateOnly, fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date %q, expected YYYY-MM-DD", fromStr)
		}
		filter.From = t
	}
	if toStr != "" {
		t, err := time.Parse(time.DateOnly, toStr)
		if err != nil {
			return fmt.Errorf("invalid --to date %q, expected YYYY-MM-DD", toStr)
		}
		filter.To = t
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return fmt.Errorf("--from must not be after --to")
	}

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := inv.History(filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "No ledger entries match.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tACTION\tUSER\tWORKER\tREASON\tTIME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.ToolName, e.Action, e.User, e.WorkerType, e.Reason,
			e.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger aggregation views",
	RunE:  runLedgerStats,
}

func runLedgerStats(cmd *cobra.Command, args []string) error {
	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	stats, err := inv.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Movements by action:")
	for _, action := range []domain.Action{domain.ActionBorrow, domain.ActionReturn, domain.ActionDispose} {
		fmt.Fprintf(os.Stdout, "  %-8s %d\n", action, stats.ByAction[action])
	}

	fmt.Fprintln(os.Stdout, "Borrows by worker type:")
	for wt, n := range stats.BorrowsByWorker {
		fmt.Fprintf(os.Stdout, "  %-12s %d\n", wt, n)
	}

	fmt.Fprintln(os.Stdout, "Disposals by worker type:")
	for wt, n := range stats.DisposalsByWorker {
		fmt.Fprintf(os.Stdout, "  %-12s %d\n", wt, n)
	}
	return nil
}
