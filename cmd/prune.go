package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tenant-backup/internal/storage"
)

var (
	pruneTenantID int64
	pruneDryRun   bool
	pruneKeepLast int
	pruneMaxAge   time.Duration
)

// createPruneCommand creates the prune subcommand
func createPruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy to archived snapshots",
		Long: `Prune removes archived snapshots per the retention policy from the
configuration file. The --keep-last and --max-age flags override the
configured policy.

Examples:
  # Show what the configured policy would remove
  tenant-backup prune --dry-run

  # Keep only the five newest archives per tenant
  tenant-backup prune --keep-last=5

  # Remove tenant 42 archives older than 90 days
  tenant-backup prune --tenant=42 --max-age=2160h`,
		RunE: runPrune,
	}

	cmd.Flags().Int64Var(&pruneTenantID, "tenant", 0, "restrict to one tenant's archives (0 = all)")
	cmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "report candidates without deleting")
	cmd.Flags().IntVar(&pruneKeepLast, "keep-last", 0, "keep at most this many archives per tenant")
	cmd.Flags().DurationVar(&pruneMaxAge, "max-age", 0, "remove archives older than this duration")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	policy := app.Config.Storage.Retention
	if cmd.Flags().Changed("keep-last") {
		policy.KeepLast = pruneKeepLast
	}
	if cmd.Flags().Changed("max-age") {
		policy.MaxAge = pruneMaxAge
	}

	ctx := cmd.Context()
	provider, err := storage.NewProvider(ctx, &app.Config.Storage)
	if err != nil {
		app.ReportError(err)
		return err
	}

	pruner, err := storage.NewPruner(provider, policy, app.Logger)
	if err != nil {
		return err
	}

	result, err := pruner.Prune(ctx, pruneTenantID, pruneDryRun)
	if err != nil {
		app.ReportError(err)
		return err
	}

	verb := "Deleted"
	if pruneDryRun {
		verb = "Would delete"
	}
	fmt.Printf("%s %d of %d archive(s), kept %d\n", verb, len(result.Deleted), result.Processed, result.Kept)
	for _, object := range result.Deleted {
		fmt.Printf("  %s (modified %s)\n", object.Key, object.ModifiedAt.Format("2006-01-02 15:04:05"))
	}
	for _, message := range result.Errors {
		fmt.Println("  error:", message)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("prune completed with %d error(s)", len(result.Errors))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(createPruneCommand())
}
