package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dryRunInventory bool

// inventoryCmd runs a single inventory cycle.
var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Run one inventory cycle",
	Long: `Collects the latest farm snapshot, emits every change against the checksum
cache and saves the cache.

Examples:
  # Emit changes and update the cache
  inventory

  # Emit changes without saving the cache
  inventory --dry-run`,
	RunE: runInventory,
}

func init() {
	inventoryCmd.Flags().BoolVar(&dryRunInventory, "dry-run", false, "Emit changes but do not save the checksum cache")
	RootCmd.AddCommand(inventoryCmd)
}

func runInventory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAgent(ctx, cfg, l, agentOptions{inventory: true})
	if err != nil {
		return err
	}
	defer a.close()

	a.inventory.SetDryRun(dryRunInventory)
	res, err := a.inventory.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("inventory cycle failed: %w", err)
	}

	l.Info("Inventory report",
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("deleted", res.Deleted),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("errors", res.Errors),
		zap.Bool("dry_run", dryRunInventory),
	)
	return nil
}
