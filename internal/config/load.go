package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load reads, expands, defaults and validates the config at path.
// Every failure is a *ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "file", Reason: fmt.Sprintf("reading %s", path), Err: err}
	}
	return Parse(data)
}

// Parse decodes YAML config bytes.
func Parse(data []byte) (*Config, error) {
	// expand $(ENV_VAR) placeholders
	expanded := expandEnvVars(string(data))

	// start from the defaults so keys the YAML leaves out keep them
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, &ConfigError{Field: "file", Reason: "unmarshalling yaml", Err: err}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UnmarshalYAML gives a target with a backupPath the default size budget
// when maxSizeMB is absent. An explicit maxSizeMB: 0 disables the budget.
func (t *Target) UnmarshalYAML(n *yaml.Node) error {
	type plain Target
	if err := n.Decode((*plain)(t)); err != nil {
		return err
	}

	var present struct {
		MaxSizeMB *int64 `yaml:"maxSizeMB"`
	}
	if err := n.Decode(&present); err != nil {
		return err
	}
	if present.MaxSizeMB == nil && t.BackupPath != "" {
		t.MaxSizeMB = DefaultMaxSizeMB
	}
	return nil
}
