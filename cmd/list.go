package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listTenantID int64

// createListCommand creates the list subcommand
func createListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots",
		Long: `List shows the snapshot archives in the configured store, newest
first within each tenant prefix.

Examples:
  tenant-backup list
  tenant-backup list --tenant=42 --format=json`,
		RunE: runList,
	}

	cmd.Flags().Int64Var(&listTenantID, "tenant", 0, "restrict to one tenant's archives (0 = all)")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	archive, err := openArchive(ctx, app.Config)
	if err != nil {
		app.ReportError(err)
		return err
	}

	objects, err := archive.List(ctx, listTenantID)
	if err != nil {
		app.ReportError(err)
		return fmt.Errorf("failed to list archives: %w", err)
	}

	return renderer.RenderArchives(objects)
}

func init() {
	rootCmd.AddCommand(createListCommand())
}
