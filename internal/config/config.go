package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "siteflow.yml"

// Config models siteflow.yml.
type Config struct {
	Store struct {
		Backend string `yaml:"backend" json:"backend"`
		NATS    struct {
			URL    string `yaml:"url" json:"url"`
			Bucket string `yaml:"bucket" json:"bucket"`
		} `yaml:"nats" json:"nats"`
	} `yaml:"store" json:"store"`
	Events struct {
		Enabled     bool   `yaml:"enabled" json:"enabled"`
		NATSURL     string `yaml:"nats_url" json:"nats_url"`
		SubjectBase string `yaml:"subject_prefix" json:"subject_prefix"`
	} `yaml:"events" json:"events"`
	Tools struct {
		Mode      string            `yaml:"mode" json:"mode"`
		Timeout   Duration          `yaml:"timeout" json:"timeout"`
		Endpoints map[string]string `yaml:"endpoints" json:"endpoints"`
	} `yaml:"tools" json:"tools"`
	BulkDelete struct {
		Concurrency int `yaml:"concurrency" json:"concurrency"`
	} `yaml:"bulk_delete" json:"bulk_delete"`
	Logging Logging `yaml:"logging" json:"logging"`
}

type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Duration is a time.Duration written as "30s" in YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

var toolIntents = map[string]bool{
	"terrain_analysis":     true,
	"layout_optimization":  true,
	"wake_simulation":      true,
	"report_generation":    true,
	"wellbore_trajectory":  true,
	"porosity_calculation": true,
	"horizon_surface":      true,
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "memory":
	case "nats":
		if strings.TrimSpace(c.Store.NATS.URL) == "" {
			return fmt.Errorf("config.store.nats.url is required for the nats backend")
		}
		if strings.TrimSpace(c.Store.NATS.Bucket) == "" {
			return fmt.Errorf("config.store.nats.bucket is required for the nats backend")
		}
	default:
		return fmt.Errorf("config.store.backend must be one of sqlite, memory, nats")
	}
	if c.Events.Enabled {
		if c.Events.NATSURL == "" {
			return fmt.Errorf("config.events.nats_url is required when events are enabled")
		}
		if c.Events.SubjectBase == "" {
			return fmt.Errorf("config.events.subject_prefix is required when events are enabled")
		}
	}
	switch c.Tools.Mode {
	case "builtin":
	case "http":
		if len(c.Tools.Endpoints) == 0 {
			return fmt.Errorf("config.tools.endpoints is required for http tools")
		}
	default:
		return fmt.Errorf("config.tools.mode must be builtin or http")
	}
	for intent, url := range c.Tools.Endpoints {
		if !toolIntents[intent] {
			return fmt.Errorf("tool endpoint for unknown intent %s", intent)
		}
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("tool endpoint for %s is empty", intent)
		}
	}
	if c.Tools.Timeout.Duration <= 0 {
		return fmt.Errorf("config.tools.timeout must be positive")
	}
	if c.BulkDelete.Concurrency < 1 {
		return fmt.Errorf("config.bulk_delete.concurrency must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.logging.level must be debug, info, warn or error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config.logging.format must be json or console")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sf config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOrDefault returns the workspace config, or the default when no file exists.
func LoadOrDefault(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing
// sections fall back to the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `store:
  backend: sqlite
  nats:
    url: nats://127.0.0.1:4222
    bucket: project_contexts

events:
  enabled: false
  nats_url: nats://127.0.0.1:4222
  subject_prefix: siteflow.events

tools:
  mode: builtin
  timeout: 30s
  endpoints: {}

bulk_delete:
  concurrency: 8

logging:
  level: info
  format: json
`
