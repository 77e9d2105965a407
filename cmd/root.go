package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tenant-backup/internal/application"
	"tenant-backup/internal/config"
	"tenant-backup/internal/display"
	"tenant-backup/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	// Database connection flags
	dbHost     string
	dbPort     int
	dbUsername string
	dbPassword string
	dbName     string

	// Operation flags
	verbose bool
	quiet   bool
	logFile string

	// Display flags
	noColor      bool
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tenant-backup",
	Short: "Tenant-scoped backup, validation, and restore for the accounting platform",
	Long: `tenant-backup exports a single tenant's accounting data to a portable
snapshot, validates snapshots against a target tenant, and manages the
restore queue that feeds the platform's restore executor.

Snapshots are checksummed, ordered by foreign-key dependencies, and
stripped of secrets before they leave the database. Archives can be
compressed and encrypted, and stored locally or in S3, Azure Blob
Storage, or Google Cloud Storage.

Examples:
  # Export tenant 42 to the configured archive store
  tenant-backup export --tenant=42 --user=7 --config=config.yaml

  # Validate an archived snapshot against tenant 42
  tenant-backup validate --key=42/0b3e....backup --tenant=42 --user=7

  # Queue a restore and run a dry run first
  tenant-backup restore request --key=42/0b3e....backup --tenant=42 --user=7
  tenant-backup restore run --queue=17 --user=7 --dry-run

  # Execute the restore for real (prompts for confirmation)
  tenant-backup restore run --queue=17 --user=7

  # Machine-readable output for automation
  tenant-backup validate --key=... --tenant=42 --user=7 --format=json`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tenant-backup.yaml)")

	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dbHost, "db-host", "", "platform database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "db-port", 3306, "platform database port")
	rootCmd.PersistentFlags().StringVar(&dbUsername, "db-user", "", "platform database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "db-password", "", "platform database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "db-name", "", "platform database name")

	// Operation flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stdout")

	// Display flags
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("db-host"))
	viper.BindPFlag("database.port", rootCmd.PersistentFlags().Lookup("db-port"))
	viper.BindPFlag("database.username", rootCmd.PersistentFlags().Lookup("db-user"))
	viper.BindPFlag("database.password", rootCmd.PersistentFlags().Lookup("db-password"))
	viper.BindPFlag("database.database", rootCmd.PersistentFlags().Lookup("db-name"))

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tenant-backup" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tenant-backup")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("TENANT_BACKUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig builds the application configuration from the config file,
// environment variables, and CLI flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if cmd.Flags().Changed("db-port") {
		cfg.Database.Port = dbPort
	}
	if dbUsername != "" {
		cfg.Database.Username = dbUsername
	}
	if dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName != "" {
		cfg.Database.Database = dbName
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	cfg.SetDefaults()

	if verbose {
		cfg.Logging.Level = string(logging.LogLevelVerbose)
	}
	if quiet {
		cfg.Logging.Level = string(logging.LogLevelQuiet)
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// newApp resolves the configuration and builds the shared runtime
func newApp(cmd *cobra.Command) (*application.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return application.New(cfg)
}

// newRenderer builds the output renderer from the --format and --no-color flags
func newRenderer() (*display.Renderer, error) {
	if noColor {
		os.Setenv("NO_COLOR", "1")
	}
	format := display.Format(strings.ToLower(outputFormat))
	switch format {
	case display.FormatText, display.FormatJSON:
	default:
		return nil, fmt.Errorf("invalid output format '%s', must be one of: text, json", outputFormat)
	}
	return display.NewRenderer(format), nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  "Print the version information for tenant-backup",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tenant-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Examples:
  tenant-backup config > config.yaml
  tenant-backup config --out=config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outFile != "" {
				return config.WriteSample(outFile)
			}
			sampleConfig := `# tenant-backup configuration file

# Platform database connection
database:
  host: localhost           # Platform database hostname or IP
  port: 3306                # Platform database port
  username: backup_user     # Database username
  password: ""              # Database password (use env var for security)
  database: platform        # Platform database name
  timeout: 30s              # Connection timeout

# Archive storage
storage:
  provider: local           # Storage backend: local, s3, azure, gcs
  compression: gzip         # Snapshot compression: none, gzip, lz4, zstd
  compression_level: 0      # 0 uses the algorithm default
  local:
    base_path: ./snapshots  # Directory for local archives
  # s3:
  #   region: us-east-1
  #   bucket: tenant-backups
  #   prefix: snapshots/
  # azure:
  #   account_name: myaccount
  #   container: tenant-backups
  # gcs:
  #   bucket: tenant-backups
  #   credentials_path: /etc/gcs/credentials.json
  encryption:
    enabled: false          # AES-256-GCM archive encryption
    passphrase: ""          # Use TENANT_BACKUP_STORAGE_ENCRYPTION_PASSPHRASE instead
    # key_file: /etc/tenant-backup/archive.key
  # retention:             # Policy applied by "tenant-backup prune"
  #   keep_last: 10
  #   max_age: 2160h

# Logging
logging:
  level: normal             # quiet, normal, verbose, debug
  format: text              # text or json
  file: ""                  # Optional log file path (empty = stdout)

# Security recommendations:
# 1. Store secrets in environment variables:
#    export TENANT_BACKUP_DATABASE_PASSWORD=your_password
#    export TENANT_BACKUP_STORAGE_ENCRYPTION_PASSPHRASE=your_passphrase
# 2. Set restrictive file permissions: chmod 600 config.yaml
# 3. Use a dedicated database user with minimal required privileges
`
			fmt.Print(sampleConfig)
			return nil
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "write the sample configuration to this file")
	return cmd
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
