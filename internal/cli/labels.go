package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/borrowmate/borrowmate/internal/labels"
)

// ─── Labels Command ─────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.Flags().StringP("out", "o", "labels.pdf", "output PDF path")
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Export a printable Code128 label sheet for all tools",
	RunE:  runLabels,
}

func runLabels(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	tools, err := inv.List()
	if err != nil {
		return err
	}

	pdf, err := labels.Sheet(tools)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, pdf, 0644); err != nil {
		return fmt.Errorf("write label sheet: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %d label(s) to %s\n", len(tools), out)
	return nil
}
