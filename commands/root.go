package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lzray/focustrace/internal/config"
	"github.com/lzray/focustrace/internal/util"
)

var (
	// Logging related
	debug bool

	// Configuration
	configPath string
	dataDir    string

	rootCmd = &cobra.Command{
		Use:   "focustrace",
		Short: "Application focus tracking and context-switch analysis",
		Long: `focustrace tracks which application holds foreground focus over time,
separates meaningful task switches from rapid-click noise, and keeps
crash-safe records of activity and context switches.

Examples:
  focustrace track                         # Run the ingestion daemon
  focustrace report                        # Productivity report over all history
  focustrace report --duration 12h         # Report over the last 12 hours
  focustrace report --output json          # Machine-readable report
  focustrace clear --yes                   # Drop all recorded history`,
	}
)

const defaultConfigPath = "~/.focustrace/config.yaml"

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath,
		"Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"Override the data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
}

func Execute() error {
	return rootCmd.Execute()
}

// initRuntime loads the environment and config file, expands paths, and
// initializes logging. Called at the top of every subcommand.
func initRuntime() (config.Config, error) {
	// Optional .env for local overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.DataDir = config.ExpandPath(cfg.DataDir)
	cfg.SpoolPath = config.ExpandPath(cfg.SpoolPath)
	cfg.LogFile = config.ExpandPath(cfg.LogFile)
	cfg.CategoryRules = config.ExpandPath(cfg.CategoryRules)
	for i, dir := range cfg.LegacyDirs {
		cfg.LegacyDirs[i] = config.ExpandPath(dir)
	}

	logLevel := "info"
	if debug {
		logLevel = "debug"
	}
	if err := ensureDir(filepath.Dir(cfg.LogFile)); err != nil {
		return cfg, fmt.Errorf("failed to create log directory: %w", err)
	}
	util.InitLogger(logLevel, cfg.LogFile, debug)

	if err := ensureDir(cfg.DataDir); err != nil {
		return cfg, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
