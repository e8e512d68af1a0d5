package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "dir-archiver",
	Short: "Dated directory archives with calendar and size retention",
	Long: `dir-archiver archives directories once per day and rotates the archives.

Retention keeps every archive younger than retentionDays plus the first
archive of each month and of each year. Targets with a backupPath are also
held under maxSizeMB by deleting the oldest files in that root.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json (overrides config)")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// setup loads the config and builds the logger. The returned closer flushes
// the session log file.
func setup(w io.Writer) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, closer, err := logging.New(cfg.Logging, w)
	if err != nil {
		return nil, nil, nil, &config.ConfigError{Field: "logging", Reason: err.Error(), Err: err}
	}
	slog.SetDefault(log)
	return cfg, log, closer, nil
}
