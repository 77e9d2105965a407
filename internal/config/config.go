package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tenant-backup/internal/database"
	"tenant-backup/internal/storage"
)

// LoggingConfig controls log output
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	ShowCaller bool   `mapstructure:"show_caller" yaml:"show_caller"`
}

// Config is the full application configuration
type Config struct {
	Database database.Config `mapstructure:"database" yaml:"database"`
	Storage  storage.Config  `mapstructure:"storage" yaml:"storage"`
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// Load reads the configuration from the given file, or from the default
// search path when the file is empty. Environment variables prefixed with
// TENANT_BACKUP override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".tenant-backup")
	}

	v.SetEnvPrefix("TENANT_BACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	config.SetDefaults()
	return config, nil
}

// SetDefaults fills in defaults for every section
func (c *Config) SetDefaults() {
	c.Database.SetDefaults()
	c.Storage.SetDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = "normal"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Storage.Validate()
}

// WriteSample writes a documented sample configuration to the path
func WriteSample(path string) error {
	sample := &Config{}
	sample.Database = database.Config{
		Host:     "localhost",
		Port:     3306,
		Username: "backup_user",
		Database: "platform",
	}
	sample.SetDefaults()

	data, err := yaml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to render sample configuration: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
