package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tenant-backup/internal/config"
	"tenant-backup/internal/snapshot"
	"tenant-backup/internal/validate"
)

var (
	validateKey      string
	validateFile     string
	validateTenantID int64
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a snapshot against a target tenant",
		Long: `Validate checks a snapshot's structure, checksum, version
compatibility, internal foreign-key references, and accounting balance,
and reports whether it is safe to restore into the target tenant.

The snapshot can come from the archive store (--key) or from a local
snapshot JSON file (--file).

Examples:
  tenant-backup validate --key=42/0b3e....backup --tenant=42
  tenant-backup validate --file=snapshot.json --tenant=42 --format=json`,
		RunE: runValidate,
	}

	cmd.Flags().StringVar(&validateKey, "key", "", "archive key of the snapshot to validate")
	cmd.Flags().StringVar(&validateFile, "file", "", "local snapshot JSON file to validate")
	cmd.Flags().Int64Var(&validateTenantID, "tenant", 0, "target tenant (company) ID")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagsMutuallyExclusive("key", "file")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateKey == "" && validateFile == "" {
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
	backup, err := loadSnapshot(ctx, app.Config, validateKey, validateFile)
	if err != nil {
		app.ReportError(err)
		return err
	}

	validator := validate.NewValidator(db, app.Logger)
	result, err := validator.Validate(ctx, backup, validateTenantID)
	if err != nil {
		app.ReportError(err)
		return err
	}

	if err := renderer.RenderValidation(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("validation failed with %d error(s)", len(result.Errors))
	}
	return nil
}

// loadSnapshot reads the snapshot named by an archive key or a local file
func loadSnapshot(ctx context.Context, cfg *config.Config, key, file string) (*snapshot.BackupData, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot file: %w", err)
		}
		return snapshot.FromJSON(data)
	}

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return archive.Read(ctx, key)
}

func init() {
	rootCmd.AddCommand(createValidateCommand())
}
