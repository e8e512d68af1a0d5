package config

import "fmt"

// ConfigError reports missing or malformed configuration. It is fatal at
// startup.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }
