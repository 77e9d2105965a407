package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tenant-backup/internal/config"
	"tenant-backup/internal/export"
	"tenant-backup/internal/storage"
)

var (
	exportTenantID int64
	exportUserID   int64
	exportTables   []string
	exportNoStore  bool
	exportOutFile  string
)

// createExportCommand creates the export subcommand
func createExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one tenant's data to an archived snapshot",
		Long: `Export walks the platform tables in foreign-key dependency order,
pulls every row belonging to the tenant, strips secret columns, and
writes a checksummed snapshot to the configured archive store.

The acting user must be an owner or admin of the tenant.

Examples:
  # Full export of tenant 42
  tenant-backup export --tenant=42 --user=7

  # Partial export of selected tables
  tenant-backup export --tenant=42 --user=7 --tables=invoices,customers

  # Write the raw snapshot JSON to a file instead of the archive store
  tenant-backup export --tenant=42 --user=7 --no-store --out=snapshot.json`,
		RunE: runExport,
	}

	cmd.Flags().Int64Var(&exportTenantID, "tenant", 0, "tenant (company) ID to export")
	cmd.Flags().Int64Var(&exportUserID, "user", 0, "acting user ID")
	cmd.Flags().StringSliceVar(&exportTables, "tables", nil, "restrict the export to these tables")
	cmd.Flags().BoolVar(&exportNoStore, "no-store", false, "skip the archive store and write snapshot JSON locally")
	cmd.Flags().StringVar(&exportOutFile, "out", "", "output file for --no-store (default snapshot-<id>.json)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
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
	exporter := export.NewExporter(db, app.Logger)
	backup, err := exporter.Export(ctx, export.Request{
		TenantID: exportTenantID,
		UserID:   exportUserID,
		Tables:   exportTables,
	})
	if err != nil {
		app.ReportError(err)
		return err
	}

	if exportNoStore {
		path := exportOutFile
		if path == "" {
			path = fmt.Sprintf("snapshot-%s.json", backup.Metadata.ID)
		}
		data, err := backup.ToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write snapshot file: %w", err)
		}
		return renderer.RenderExport(backup, path)
	}

	archive, err := openArchive(ctx, app.Config)
	if err != nil {
		app.ReportError(err)
		return err
	}

	key, err := archive.Write(ctx, backup)
	if err != nil {
		app.ReportError(err)
		return err
	}

	return renderer.RenderExport(backup, key)
}

// openArchive builds the archive store, prompting for the encryption
// passphrase when encryption is enabled but no key material is configured.
func openArchive(ctx context.Context, cfg *config.Config) (*storage.Archive, error) {
	if cfg.Storage.Encryption.Enabled &&
		cfg.Storage.Encryption.Passphrase == "" &&
		cfg.Storage.Encryption.KeyFile == "" {
		passphrase, err := promptPassphrase()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Encryption.Passphrase = passphrase
	}
	return storage.NewArchive(ctx, &cfg.Storage)
}

// promptPassphrase reads the archive passphrase without echoing it
func promptPassphrase() (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("archive encryption is enabled but no passphrase is configured; set storage.encryption.passphrase or TENANT_BACKUP_STORAGE_ENCRYPTION_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, "Archive passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(raw), nil
}

func init() {
	rootCmd.AddCommand(createExportCommand())
}
