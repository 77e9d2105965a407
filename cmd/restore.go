package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"tenant-backup/internal/confirmation"
	"tenant-backup/internal/restore"
	"tenant-backup/internal/tenancy"
	"tenant-backup/internal/validate"
)

var (
	restoreKey      string
	restoreFile     string
	restoreTenantID int64
	restoreUserID   int64

	restoreQueueID int64
	restoreDryRun  bool
	restorePhrase  string
	restoreAcked   bool
)

// createRestoreCommand creates the restore command tree
func createRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Queue and run tenant restores",
		Long: `The restore workflow has two phases. "restore request" validates a
snapshot against the target tenant and, when valid, writes a PENDING
entry to the restore queue. "restore run" hands a queued entry to the
platform's restore executor, as a dry run or for real.

A real run replaces the tenant's data and requires typing the literal
confirmation phrase RESTORE plus a final acknowledgment. Only the
tenant owner may restore.`,
	}

	cmd.AddCommand(createRestoreRequestCommand())
	cmd.AddCommand(createRestoreRunCommand())
	cmd.AddCommand(createRestoreStatusCommand())
	return cmd
}

// createRestoreRequestCommand creates the restore request subcommand
func createRestoreRequestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Validate a snapshot and queue it for restore",
		Long: `Request validates the snapshot against the target tenant and, when
validation passes, writes a PENDING restore queue entry. Snapshots at
or under the inline threshold are stored in the entry itself; larger
snapshots are split into batch records.

A tenant can have only one restore in flight; a second request is
rejected with a conflict.

Examples:
  tenant-backup restore request --key=42/0b3e....backup --tenant=42 --user=7`,
		RunE: runRestoreRequest,
	}

	cmd.Flags().StringVar(&restoreKey, "key", "", "archive key of the snapshot to queue")
	cmd.Flags().StringVar(&restoreFile, "file", "", "local snapshot JSON file to queue")
	cmd.Flags().Int64Var(&restoreTenantID, "tenant", 0, "target tenant (company) ID")
	cmd.Flags().Int64Var(&restoreUserID, "user", 0, "acting user ID (must be the tenant owner)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagsMutuallyExclusive("key", "file")

	return cmd
}

// createRestoreRunCommand creates the restore run subcommand
func createRestoreRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a queued restore through the platform executor",
		Long: `Run hands the queue entry to the platform's restore executor. With
--dry-run the executor verifies the restore without changing data and
the entry moves to DRY_RUN_SUCCESS or DRY_RUN_FAILED. Without it the
restore executes for real and the entry moves to COMPLETED or FAILED.

A real run prompts for the confirmation phrase unless both
--confirm=RESTORE and --acknowledge are given.

Examples:
  tenant-backup restore run --queue=17 --user=7 --dry-run
  tenant-backup restore run --queue=17 --user=7
  tenant-backup restore run --queue=17 --user=7 --confirm=RESTORE --acknowledge`,
		RunE: runRestoreRun,
	}

	cmd.Flags().Int64Var(&restoreQueueID, "queue", 0, "restore queue entry ID")
	cmd.Flags().Int64Var(&restoreUserID, "user", 0, "acting user ID (must be the tenant owner)")
	cmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "verify the restore without changing data")
	cmd.Flags().StringVar(&restorePhrase, "confirm", "", "confirmation phrase for non-interactive real runs")
	cmd.Flags().BoolVar(&restoreAcked, "acknowledge", false, "acknowledge that the tenant's current data will be replaced")
	cmd.MarkFlagRequired("queue")
	cmd.MarkFlagRequired("user")

	return cmd
}

// createRestoreStatusCommand creates the restore status subcommand
func createRestoreStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a restore queue entry",
		RunE:  runRestoreStatus,
	}

	cmd.Flags().Int64Var(&restoreQueueID, "queue", 0, "restore queue entry ID")
	cmd.MarkFlagRequired("queue")

	return cmd
}

func runRestoreRequest(cmd *cobra.Command, args []string) error {
	if restoreKey == "" && restoreFile == "" {
		return fmt.Errorf("one of --key or --file is required")
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	db, err := app.Database()
	if err != nil {
		app.ReportError(err)
		return err
	}

	ctx := cmd.Context()

	tenants := tenancy.NewService(db, app.Logger)
	if err := tenants.AuthorizeRestore(ctx, restoreTenantID, restoreUserID); err != nil {
		app.ReportError(err)
		return err
	}

	backup, err := loadSnapshot(ctx, app.Config, restoreKey, restoreFile)
	if err != nil {
		app.ReportError(err)
		return err
	}

	validator := validate.NewValidator(db, app.Logger)
	result, err := validator.Validate(ctx, backup, restoreTenantID)
	if err != nil {
		app.ReportError(err)
		return err
	}
	if err := renderer.RenderValidation(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("snapshot failed validation; not queued")
	}

	store := restore.NewStore(db, app.Logger)
	queueID, err := store.Enqueue(ctx, backup, restoreTenantID, restoreUserID, originAddress())
	if err != nil {
		app.ReportError(err)
		return err
	}

	fmt.Printf("Queued restore %d for tenant %d (%d records)\n", queueID, restoreTenantID, backup.TotalRecords())
	fmt.Printf("Run a dry run first: tenant-backup restore run --queue=%d --user=%d --dry-run\n", queueID, restoreUserID)
	return nil
}

func runRestoreRun(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	db, err := app.Database()
	if err != nil {
		app.ReportError(err)
		return err
	}

	ctx := cmd.Context()
	executor := restore.NewProcedureExecutor(db)
	orchestrator := restore.NewOrchestrator(db, executor, app.Logger)

	if !restoreDryRun {
		entry, err := orchestrator.Store().GetEntry(ctx, restoreQueueID)
		if err != nil {
			app.ReportError(err)
			return err
		}

		tenants := tenancy.NewService(db, app.Logger)
		tenant, err := tenants.GetTenant(ctx, entry.TenantID)
		if err != nil {
			app.ReportError(err)
			return err
		}

		if cmd.Flags().Changed("confirm") || restoreAcked {
			if err := confirmation.Check(restorePhrase, restoreAcked); err != nil {
				return err
			}
		} else {
			confirmed, err := confirmation.NewService().ConfirmRestore(confirmation.Request{
				QueueID:      entry.ID,
				TenantName:   tenant.Name,
				TotalRecords: entry.TotalRecords,
			})
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Restore cancelled")
				return nil
			}
		}
	}

	result, err := orchestrator.Restore(ctx, restoreQueueID, restoreUserID, restoreDryRun)
	if result != nil {
		if renderErr := renderer.RenderRestore(result); renderErr != nil {
			return renderErr
		}
	}
	if err != nil {
		app.ReportError(err)
	}
	return err
}

func runRestoreStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	db, err := app.Database()
	if err != nil {
		app.ReportError(err)
		return err
	}

	store := restore.NewStore(db, app.Logger)
	entry, err := store.GetEntry(cmd.Context(), restoreQueueID)
	if err != nil {
		app.ReportError(err)
		return err
	}

	return renderer.RenderQueueEntry(entry)
}

// originAddress returns the local address recorded on queue entries
func originAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
				return ipNet.IP.String()
			}
		}
	}
	return "127.0.0.1"
}

func init() {
	rootCmd.AddCommand(createRestoreCommand())
}
