// Package config holds the YAML configuration of dir-archiver.
package config

import (
	"path/filepath"
	"time"
)

// Archive container formats understood by the producer and the catalog.
const (
	FormatZip    = "zip"
	FormatTarZst = "tar.zst"
)

type Config struct {
	BackupTime    string              `yaml:"backupTime"` // "HH:MM"
	Schedule      string              `yaml:"schedule"`   // cron expression, overrides BackupTime
	RetentionDays int                 `yaml:"retentionDays"`
	Format        string              `yaml:"format"` // "zip", "tar.zst"
	Targets       []Target            `yaml:"targets"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	ConfigReload  ReloadConfig        `yaml:"configReload"`
}

// Target is one source directory under management.
type Target struct {
	Path       string   `yaml:"path"`
	Exclude    []string `yaml:"exclude"`
	BackupPath string   `yaml:"backupPath"` // dedicated archive-storage root
	MaxSizeMB  int64    `yaml:"maxSizeMB"`
}

type NotificationsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"` // e.g. ["notify-send", "{title}", "{message}"]
}

type LoggingConfig struct {
	Level      string `yaml:"level"`  // "info", "debug", etc.
	Format     string `yaml:"format"` // "json", "text"
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`  // session log size before it is rotated
	MaxBackups int    `yaml:"maxBackups"` // rotated session logs kept; 0 keeps all
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type ReloadConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Method       string        `yaml:"method"` // "auto", "fsnotify", "poll", "signal"
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Name is the base name of the source directory. Archive file names and the
// archive directory are derived from it.
func (t Target) Name() string {
	return filepath.Base(filepath.Clean(t.Path))
}

// ArchiveDir is the directory holding this target's archives:
// <backupPath>/.backup_<name> when a dedicated root is set, otherwise a
// sibling of the source directory.
func (t Target) ArchiveDir() string {
	dir := ".backup_" + t.Name()
	if t.BackupPath != "" {
		return filepath.Join(t.BackupPath, dir)
	}
	return filepath.Join(filepath.Dir(filepath.Clean(t.Path)), dir)
}

// HasDedicatedRoot reports whether archives live under a configured root,
// which is the only case where the size budget is enforced.
func (t Target) HasDedicatedRoot() bool {
	return t.BackupPath != ""
}

// BudgetBytes is the size ceiling for the target's archive-storage root.
// Zero means no budget.
func (t Target) BudgetBytes() int64 {
	return t.MaxSizeMB * 1024 * 1024
}

// Config reload methods.
const (
	ReloadAuto     = "auto"
	ReloadFsnotify = "fsnotify"
	ReloadPoll     = "poll"
	ReloadSignal   = "signal"
)
