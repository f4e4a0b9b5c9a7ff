package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"farm-agent/core/reconcile"
	"farm-agent/core/sink"
	"farm-agent/core/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	yesConfirm     bool
	showRecords    bool
	resetInventory bool
	resetAudit     bool
)

// checkpointCmd is the parent command for checkpoint operations.
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset the persisted checkpoints",
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the checksum cache and audit positions",
	RunE:  runCheckpointShow,
}

var checkpointResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete checkpoints so the next run starts from scratch",
	Long: `Deletes the checksum cache, the audit source catalog and the audit positions.

The next inventory cycle emits every object as added and the next audit poll
delivers the whole audit log again.

Examples:
  # Reset everything (with interactive confirmation)
  checkpoint reset

  # Reset only the inventory cache, non-interactive
  checkpoint reset --inventory --yes`,
	RunE: runCheckpointReset,
}

func init() {
	checkpointShowCmd.Flags().BoolVar(&showRecords, "records", false, "Print every cached record")
	checkpointResetCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm (non-interactive)")
	checkpointResetCmd.Flags().BoolVar(&resetInventory, "inventory", false, "Reset only the inventory cache")
	checkpointResetCmd.Flags().BoolVar(&resetAudit, "audit", false, "Reset only the audit catalog and positions")

	checkpointCmd.AddCommand(checkpointShowCmd, checkpointResetCmd)
	RootCmd.AddCommand(checkpointCmd)
}

func openCheckpoints(ctx context.Context, load bool) (*agent, error) {
	cfg, l, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAgent(ctx, cfg, l, agentOptions{discardEvents: true, skipLoad: !load})
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openCheckpoints(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	counts := a.stores.inventory.Counts()
	fields := make([]zap.Field, 0, len(counts)+1)
	fields = append(fields, zap.Int("records", a.stores.inventory.Len()))
	for category, n := range counts {
		fields = append(fields, zap.Int(string(category), n))
	}
	a.logger.Info("Checksum cache", fields...)

	if showRecords {
		for _, rec := range a.stores.inventory.Records() {
			fmt.Printf("%s\t%s\t%s\t%s\n", rec.Category, rec.ID, rec.LastUpdated.Format(sink.TimeLayout), rec.Digest)
		}
	}

	a.logger.Info("Audit sources", zap.Strings("sources", a.stores.sources.IdentifiersOf(reconcile.CategoryAuditSource)))
	for _, pos := range a.stores.positions.Positions() {
		a.logger.Info("Audit position",
			zap.String("source", pos.Source),
			zap.Time("last_timestamp", pos.LastTimestamp),
			zap.Int64("ticks", utils.ToTicks(pos.LastTimestamp)),
			zap.Int("tie_break", len(pos.TieBreak)),
		)
	}
	return nil
}

func runCheckpointReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openCheckpoints(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	all := !resetInventory && !resetAudit
	if !confirmDestructiveAction() {
		a.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	if all || resetInventory {
		if err := a.stores.inventory.Reset(ctx); err != nil {
			return err
		}
		a.logger.Info("Checksum cache reset")
	}
	if all || resetAudit {
		if err := a.stores.sources.Reset(ctx); err != nil {
			return err
		}
		if err := a.stores.positions.Reset(ctx); err != nil {
			return err
		}
		a.logger.Info("Audit catalog and positions reset")
	}
	return nil
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Fprintln(os.Stderr, "\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Fprint(os.Stderr, "\n⚠️  Type 'yes' to confirm the reset: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
