package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration, loaded from
// ~/.focustrace/config.yaml with every field optional.
type Config struct {
	DataDir       string     `yaml:"data_dir"`
	SpoolPath     string     `yaml:"spool_path"`
	LogFile       string     `yaml:"log_file"`
	CategoryRules string     `yaml:"category_rules"`
	LegacyDirs    []string   `yaml:"legacy_dirs"`
	Thresholds    Thresholds `yaml:"thresholds"`
	Retention     Retention  `yaml:"retention"`
}

// Thresholds tunes the pipeline timing. All values in seconds except
// the settle delay.
type Thresholds struct {
	SmartWindowSeconds int `yaml:"smart_window_seconds"`
	SettleDelayMs      int `yaml:"settle_delay_ms"`
	SessionIdleSeconds int `yaml:"session_idle_seconds"`
	SessionMaxSeconds  int `yaml:"session_max_seconds"`
	MeaningfulSeconds  int `yaml:"meaningful_seconds"`
	FocusSeconds       int `yaml:"focus_seconds"`
}

// Retention tunes history pruning and backup lifecycles
type Retention struct {
	MaxLiveEvents       int `yaml:"max_live_events"`
	BackupsPerEntry     int `yaml:"backups_per_entry"`
	BackupRetentionDays int `yaml:"backup_retention_days"`
	SweepIntervalHours  int `yaml:"sweep_interval_hours"`
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		DataDir:       "~/.focustrace/data",
		SpoolPath:     "~/.focustrace/spool/focus.jsonl",
		LogFile:       "~/.focustrace/logs/app.log",
		CategoryRules: "~/.focustrace/categories.yaml",
		Thresholds: Thresholds{
			SmartWindowSeconds: 8,
			SettleDelayMs:      500,
			SessionIdleSeconds: 300,
			SessionMaxSeconds:  3600,
			MeaningfulSeconds:  10,
			FocusSeconds:       120,
		},
		Retention: Retention{
			MaxLiveEvents:       10000,
			BackupsPerEntry:     3,
			BackupRetentionDays: 30,
			SweepIntervalHours:  24,
		},
	}
}

// Load reads the config file at path, overlaying it on the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ExpandPath resolves a leading ~/ against the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

// Duration accessors.

func (t Thresholds) SmartWindow() time.Duration {
	return time.Duration(t.SmartWindowSeconds) * time.Second
}

func (t Thresholds) SettleDelay() time.Duration {
	return time.Duration(t.SettleDelayMs) * time.Millisecond
}

func (t Thresholds) SessionIdle() time.Duration {
	return time.Duration(t.SessionIdleSeconds) * time.Second
}

func (t Thresholds) SessionMax() time.Duration {
	return time.Duration(t.SessionMaxSeconds) * time.Second
}

func (t Thresholds) Meaningful() time.Duration {
	return time.Duration(t.MeaningfulSeconds) * time.Second
}

func (t Thresholds) Focus() time.Duration {
	return time.Duration(t.FocusSeconds) * time.Second
}

func (r Retention) BackupRetention() time.Duration {
	return time.Duration(r.BackupRetentionDays) * 24 * time.Hour
}

func (r Retention) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalHours) * time.Hour
}
