package config

import "time"

const (
	DefaultRetentionDays = 7
	DefaultMaxSizeMB     = 100
	DefaultMetricsListen = ":9109"
	DefaultPollInterval  = 5 * time.Second
	DefaultLogMaxSizeMB  = 1
	DefaultLogMaxBackups = 5
)

// Default returns a config with every optional field set.
func Default() *Config {
	return &Config{
		RetentionDays: DefaultRetentionDays,
		Format:        FormatZip,
		Notifications: NotificationsConfig{Enabled: true},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
		Metrics: MetricsConfig{Listen: DefaultMetricsListen},
		ConfigReload: ReloadConfig{
			Enabled:      true,
			Method:       ReloadAuto,
			PollInterval: DefaultPollInterval,
		},
	}
}

// applyDefaults fills fields the YAML set to empty values. Target size
// budgets are defaulted while decoding, see Target.UnmarshalYAML.
func (c *Config) applyDefaults() {
	d := Default()

	if c.RetentionDays == 0 {
		c.RetentionDays = d.RetentionDays
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = d.Logging.MaxSizeMB
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = d.Metrics.Listen
	}
	if c.ConfigReload.Method == "" {
		c.ConfigReload.Method = d.ConfigReload.Method
	}
	if c.ConfigReload.PollInterval <= 0 {
		c.ConfigReload.PollInterval = d.ConfigReload.PollInterval
	}

}
