package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Store driver names accepted in liaison.json
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config represents the liaison.json configuration file
type Config struct {
	Version    string           `json:"version"`
	DataDir    string           `json:"data_dir"`
	Store      StoreConfig      `json:"store"`
	Classifier ClassifierConfig `json:"classifier"`
	Ledger     LedgerConfig     `json:"ledger"`
	Inbox      InboxConfig      `json:"inbox"`
}

// StoreConfig selects and parameterizes the task repository
type StoreConfig struct {
	Driver string `json:"driver"`
	// Path is the SQLite database file; ignored by the file driver,
	// which keeps one JSON document per task under DataDir.
	Path string `json:"path,omitempty"`
}

// ClassifierConfig describes the external classifier subprocess
type ClassifierConfig struct {
	Cmd      []string `json:"cmd"`
	TimeoutS int      `json:"timeout_s,omitempty"`
}

// LedgerConfig bounds the per-task conversation ledger
type LedgerConfig struct {
	MaxEvents          int `json:"max_events,omitempty"`
	TrimTarget         int `json:"trim_target,omitempty"`
	MaxSerializedChars int `json:"max_serialized_chars,omitempty"`
	MaxContentChars    int `json:"max_content_chars,omitempty"`
}

// InboxConfig locates the drop directory swept for inbound message files
type InboxConfig struct {
	Dir string `json:"dir"`
}

// GenerateDefault creates a new Config with default values
func GenerateDefault() *Config {
	return &Config{
		Version: "1.0",
		DataDir: ".liaison",
		Store: StoreConfig{
			Driver: StoreFile,
		},
		Classifier: ClassifierConfig{
			Cmd:      []string{"classifier-fixture"},
			TimeoutS: 60,
		},
		Ledger: LedgerConfig{
			MaxEvents:          30,
			TrimTarget:         20,
			MaxSerializedChars: 45000,
			MaxContentChars:    500,
		},
		Inbox: InboxConfig{
			Dir: "inbox",
		},
	}
}

// Validate checks the configuration for errors and returns user-friendly error messages
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("configuration error: missing required field 'version'\n\nHint: Add a version field like:\n  \"version\": \"1.0\"")
	}

	if c.DataDir == "" {
		return fmt.Errorf("configuration error: missing required field 'data_dir'\n\nHint: Set the directory liaison keeps its state in:\n  \"data_dir\": \".liaison\"")
	}

	switch c.Store.Driver {
	case StoreFile, StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("configuration error: sqlite store requires 'store.path'\n\nHint: Point it at a database file:\n  \"store\": {\n    \"driver\": \"sqlite\",\n    \"path\": \"liaison.db\"\n  }")
		}
	default:
		return fmt.Errorf("configuration error: unknown 'store.driver' value: %q\n\nHint: Use one of \"file\", \"sqlite\", or \"memory\"", c.Store.Driver)
	}

	if len(c.Classifier.Cmd) == 0 {
		return fmt.Errorf("configuration error: classifier has empty 'cmd' field\n\nHint: Specify the command to run the classifier:\n  \"classifier\": {\n    \"cmd\": [\"classifier-fixture\"]\n  }")
	}

	if c.Classifier.TimeoutS < 0 {
		return fmt.Errorf("configuration error: 'classifier.timeout_s' must not be negative, got %d", c.Classifier.TimeoutS)
	}

	if err := c.Ledger.validate(); err != nil {
		return err
	}

	return nil
}

func (l *LedgerConfig) validate() error {
	if l.MaxEvents < 0 || l.TrimTarget < 0 || l.MaxSerializedChars < 0 || l.MaxContentChars < 0 {
		return fmt.Errorf("configuration error: ledger bounds must not be negative")
	}
	if l.MaxEvents > 0 && l.TrimTarget > l.MaxEvents {
		return fmt.Errorf("configuration error: 'ledger.trim_target' (%d) exceeds 'ledger.max_events' (%d)", l.TrimTarget, l.MaxEvents)
	}
	return nil
}

// LoadFromFile loads a configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// SaveToFile writes the configuration to a JSON file with 0600 permissions
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}
