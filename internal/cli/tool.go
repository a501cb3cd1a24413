package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Tool Commands ──────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(toolCmd)
	toolCmd.AddCommand(toolAddCmd)
	toolCmd.AddCommand(toolListCmd)
	toolCmd.AddCommand(toolRemoveCmd)
	toolCmd.AddCommand(toolDisposeCmd)
	toolCmd.AddCommand(toolAdjustCmd)
	toolCmd.AddCommand(toolCapacityCmd)

	toolAddCmd.Flags().StringP("name", "n", "", "display name")
	toolAddCmd.Flags().StringP("code", "c", "", "unique barcode payload")
	toolAddCmd.Flags().IntP("qty", "q", 0, "initial unit count")
	toolAddCmd.Flags().String("image", "", "optional image reference")

	toolDisposeCmd.Flags().IntP("qty", "q", 0, "units to retire")
	toolDisposeCmd.Flags().StringP("reason", "r", "", "disposal reason")
	toolDisposeCmd.Flags().StringP("user", "u", "", "actor name")
	toolDisposeCmd.Flags().String("worker-type", "", "worker type classification")

	toolAdjustCmd.Flags().IntP("delta", "d", 0, "signed correction to available count")
	toolCapacityCmd.Flags().IntP("add", "a", 0, "units to add to the pool")
}

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Manage tools in the crib",
}

var toolAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a tool",
	Long:  `Register a tool with total = available = qty. Re-adding an existing code is a no-op.`,
	RunE:  runToolAdd,
}

func runToolAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	code, _ := cmd.Flags().GetString("code")
	qty, _ := cmd.Flags().GetInt("qty")
	image, _ := cmd.Flags().GetString("image")
	if name == "" || code == "" {
		return fmt.Errorf("both --name and --code are required")
	}

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	id, created, err := inv.CreateTool(name, code, qty, image)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(os.Stdout, "Code %q already exists (tool #%d) — nothing changed.\n", code, id)
		return nil
	}
	fmt.Fprintf(os.Stdout, "Added tool #%d %q code=%s qty=%d\n", id, name, code, qty)
	return nil
}

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tools",
	RunE:  runToolList,
}

func runToolList(cmd *cobra.Command, args []string) error {
	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	tools, err := inv.List()
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		fmt.Fprintln(os.Stdout, "No tools registered.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCODE\tTOTAL\tAVAILABLE\tOUT")
	for _, t := range tools {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n", t.ID, t.Name, t.Code, t.TotalQty, t.AvailableQty, t.OutCount())
	}
	return tw.Flush()
}

var toolRemoveCmd = &cobra.Command{
	Use:   "remove TOOL_ID",
	Short: "Delete a tool (its ledger history is kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolRemove,
}

func runToolRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tool id %q", args[0])
	}

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := inv.DeleteTool(id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Tool #%d removed. Ledger history preserved.\n", id)
	return nil
}

var toolDisposeCmd = &cobra.Command{
	Use:   "dispose TOOL_ID",
	Short: "Permanently retire units from a tool's pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolDispose,
}

func runToolDispose(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tool id %q", args[0])
	}
	qty, _ := cmd.Flags().GetInt("qty")
	reason, _ := cmd.Flags().GetString("reason")
	user, _ := cmd.Flags().GetString("user")
	workerType, _ := cmd.Flags().GetString("worker-type")
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	sc := domain.SessionContext{
		User:       user,
		Mode:       domain.ActionDispose,
		WorkerType: domain.WorkerType(workerType),
	}
	if sc.WorkerType == "" {
		sc.WorkerType = domain.DefaultWorkerType
	}
	if err := inv.Dispose(id, qty, reason, sc); err != nil {
		return err
	}

	tool, err := inv.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Disposed %d unit(s) of %q. Now total=%d available=%d.\n",
		qty, tool.Name, tool.TotalQty, tool.AvailableQty)
	return nil
}

var toolAdjustCmd = &cobra.Command{
	Use:   "adjust TOOL_ID",
	Short: "Manually correct a tool's available count (clamped into range)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolAdjust,
}

func runToolAdjust(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tool id %q", args[0])
	}
	delta, _ := cmd.Flags().GetInt("delta")

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := inv.AdjustStock(id, delta); err != nil {
		return err
	}
	tool, err := inv.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Tool %q now total=%d available=%d.\n", tool.Name, tool.TotalQty, tool.AvailableQty)
	return nil
}

var toolCapacityCmd = &cobra.Command{
	Use:   "capacity TOOL_ID",
	Short: "Add new physical units to a tool's pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolCapacity,
}

func runToolCapacity(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tool id %q", args[0])
	}
	add, _ := cmd.Flags().GetInt("add")

	inv, closeStore, err := openInventory()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := inv.IncreaseCapacity(id, add); err != nil {
		return err
	}
	tool, err := inv.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Tool %q now total=%d available=%d.\n", tool.Name, tool.TotalQty, tool.AvailableQty)
	return nil
}
