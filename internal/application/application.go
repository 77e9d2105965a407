package application

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tenant-backup/internal/config"
	"tenant-backup/internal/database"
	appErrors "tenant-backup/internal/errors"
	"tenant-backup/internal/logging"
)

// App holds the shared runtime of one CLI invocation: configuration,
// logger, and a lazily opened platform database connection.
type App struct {
	Config *config.Config
	Logger *logging.Logger

	db              *sql.DB
	dbService       *database.Service
	shutdownHandler *appErrors.GracefulShutdownHandler
}

// New builds the runtime from the resolved configuration
func New(cfg *config.Config) (*App, error) {
	logger, err := logging.NewLogger(logging.Config{
		Level:      logging.LogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		ShowCaller: cfg.Logging.ShowCaller,
		LogFile:    cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &App{
		Config:          cfg,
		Logger:          logger,
		dbService:       database.NewServiceWithLogger(logger),
		shutdownHandler: appErrors.NewGracefulShutdownHandler(),
	}
	app.shutdownHandler.Start()
	app.setupSignalHandling()

	return app, nil
}

// Database opens the platform database connection on first use
func (a *App) Database() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	if err := a.Config.Database.Validate(); err != nil {
		return nil, err
	}

	db, err := a.dbService.Connect(a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to platform database: %w", err)
	}

	a.db = db
	a.shutdownHandler.RegisterShutdownFunc(func() error {
		return a.dbService.Close(db)
	})
	return db, nil
}

// Close releases the database connection
func (a *App) Close() error {
	a.shutdownHandler.Stop()
	if a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	return a.dbService.Close(db)
}

// setupSignalHandling closes resources and exits on interrupt signals
func (a *App) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		a.Logger.WithField("signal", sig.String()).Info("Received shutdown signal")
		a.shutdownHandler.WaitForShutdown()
		os.Exit(130)
	}()
}

// ReportError logs the structured details of a failed operation and
// prints troubleshooting hints to stderr. The error line itself is
// printed by the CLI layer.
func (a *App) ReportError(err error) {
	if err == nil {
		return
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		a.Logger.WithFields(map[string]interface{}{
			"error_type":  string(appErr.Type),
			"recoverable": appErr.IsRecoverable(),
			"context":     appErr.Context,
		}).Error("Operation failed")

		provideTroubleshootingHints(appErr)
	}
}

// provideTroubleshootingHints prints followup suggestions per error type
func provideTroubleshootingHints(appErr *appErrors.AppError) {
	switch appErr.Type {
	case appErrors.ErrorTypeConnection:
		fmt.Fprintf(os.Stderr, "\nTroubleshooting hints:\n")
		fmt.Fprintf(os.Stderr, "- Check that the platform database is running\n")
		fmt.Fprintf(os.Stderr, "- Verify the host and port are correct\n")
		fmt.Fprintf(os.Stderr, "- Ensure network connectivity to the database server\n")

	case appErrors.ErrorTypeAuthorization:
		fmt.Fprintf(os.Stderr, "\nTroubleshooting hints:\n")
		fmt.Fprintf(os.Stderr, "- Exports require the owner or admin role on the tenant\n")
		fmt.Fprintf(os.Stderr, "- Restores require the owner role on the tenant\n")
		fmt.Fprintf(os.Stderr, "- Check the --user flag against the tenant's membership\n")

	case appErrors.ErrorTypeConflict:
		fmt.Fprintf(os.Stderr, "\nTroubleshooting hints:\n")
		fmt.Fprintf(os.Stderr, "- A tenant can have only one restore in flight\n")
		fmt.Fprintf(os.Stderr, "- Check pending entries with: tenant-backup restore status --queue=<id>\n")

	case appErrors.ErrorTypeEncryption:
		fmt.Fprintf(os.Stderr, "\nTroubleshooting hints:\n")
		fmt.Fprintf(os.Stderr, "- Verify the archive passphrase or key file\n")
		fmt.Fprintf(os.Stderr, "- Encrypted archives cannot be read with encryption disabled\n")

	case appErrors.ErrorTypeStorage:
		fmt.Fprintf(os.Stderr, "\nTroubleshooting hints:\n")
		fmt.Fprintf(os.Stderr, "- Check the storage provider credentials and bucket/container name\n")
		fmt.Fprintf(os.Stderr, "- Verify the archive key exists: tenant-backup list\n")

	case appErrors.ErrorTypeTimeout:
		fmt.Fprintf(os.Stderr, "\nTroubleshooting hints:\n")
		fmt.Fprintf(os.Stderr, "- The operation may be taking longer than expected\n")
		fmt.Fprintf(os.Stderr, "- Try increasing the database timeout in the configuration\n")
	}
}
