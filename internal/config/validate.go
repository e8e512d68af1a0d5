package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks the config after defaults have been applied.
func (c *Config) Validate() error {
	if c.Schedule == "" && c.BackupTime == "" {
		return &ConfigError{Field: "backupTime", Reason: "either backupTime or schedule is required"}
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return &ConfigError{Field: "schedule", Reason: fmt.Sprintf("invalid cron expression %q", c.Schedule), Err: err}
		}
	} else if _, err := time.Parse("15:04", c.BackupTime); err != nil {
		return &ConfigError{Field: "backupTime", Reason: fmt.Sprintf("%q is not HH:MM", c.BackupTime), Err: err}
	}

	if c.RetentionDays <= 0 {
		return &ConfigError{Field: "retentionDays", Reason: "must be positive"}
	}

	switch c.Format {
	case FormatZip, FormatTarZst:
	default:
		return &ConfigError{Field: "format", Reason: fmt.Sprintf("unknown archive format %q", c.Format)}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Reason: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}

	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Reason: "must not be negative"}
	}

	switch c.ConfigReload.Method {
	case ReloadAuto, ReloadFsnotify, ReloadPoll, ReloadSignal:
	default:
		return &ConfigError{Field: "configReload.method", Reason: fmt.Sprintf("unknown method %q", c.ConfigReload.Method)}
	}

	if c.Notifications.Enabled && len(c.Notifications.Command) > 0 && c.Notifications.Command[0] == "" {
		return &ConfigError{Field: "notifications.command", Reason: "command name is empty"}
	}

	if len(c.Targets) == 0 {
		return &ConfigError{Field: "targets", Reason: "at least one target is required"}
	}

	seen := make(map[string]bool, len(c.Targets))
	archiveDirs := make(map[string]string, len(c.Targets))
	for i, t := range c.Targets {
		field := fmt.Sprintf("targets[%d]", i)
		if t.Path == "" {
			return &ConfigError{Field: field + ".path", Reason: "required"}
		}
		if !filepath.IsAbs(t.Path) {
			return &ConfigError{Field: field + ".path", Reason: fmt.Sprintf("%q must be absolute", t.Path)}
		}
		clean := filepath.Clean(t.Path)
		if seen[clean] {
			return &ConfigError{Field: field + ".path", Reason: fmt.Sprintf("duplicate target %q", t.Path)}
		}
		seen[clean] = true

		archiveDir := t.ArchiveDir()
		if other, ok := archiveDirs[archiveDir]; ok {
			return &ConfigError{Field: field + ".path", Reason: fmt.Sprintf("archive directory %s is already used by %q", archiveDir, other)}
		}
		archiveDirs[archiveDir] = t.Path

		if t.BackupPath != "" && !filepath.IsAbs(t.BackupPath) {
			return &ConfigError{Field: field + ".backupPath", Reason: fmt.Sprintf("%q must be absolute", t.BackupPath)}
		}
		if t.MaxSizeMB < 0 {
			return &ConfigError{Field: field + ".maxSizeMB", Reason: "must not be negative"}
		}
	}

	return nil
}

// CronSpec is the standard 5-field cron expression the scheduler registers.
func (c *Config) CronSpec() (string, error) {
	if c.Schedule != "" {
		return c.Schedule, nil
	}
	t, err := time.Parse("15:04", c.BackupTime)
	if err != nil {
		return "", &ConfigError{Field: "backupTime", Reason: fmt.Sprintf("%q is not HH:MM", c.BackupTime), Err: err}
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// Target returns the configured target whose path matches p.
func (c *Config) Target(p string) (Target, bool) {
	clean := filepath.Clean(p)
	for _, t := range c.Targets {
		if filepath.Clean(t.Path) == clean {
			return t, true
		}
	}
	return Target{}, false
}
