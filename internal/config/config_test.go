package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("expected sqlite backend, got %s", cfg.Store.Backend)
	}
	if cfg.Tools.Timeout.Duration != 30*time.Second {
		t.Fatalf("unexpected tool timeout %v", cfg.Tools.Timeout)
	}
	if cfg.BulkDelete.Concurrency != 8 {
		t.Fatalf("unexpected concurrency %d", cfg.BulkDelete.Concurrency)
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
store:
  backend: memory
tools:
  mode: http
  timeout: 5s
  endpoints:
    terrain_analysis: http://tools.local/terrain
logging:
  level: debug
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("backend not overridden")
	}
	if cfg.Tools.Timeout.Duration != 5*time.Second {
		t.Fatalf("timeout not parsed: %v", cfg.Tools.Timeout)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected default format to survive, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"backend":     "store:\n  backend: s3\n",
		"nats url":    "store:\n  backend: nats\n  nats:\n    url: \"\"\n",
		"tools mode":  "tools:\n  mode: lambda\n",
		"http empty":  "tools:\n  mode: http\n",
		"endpoint":    "tools:\n  endpoints:\n    drill_well: http://x\n",
		"concurrency": "bulk_delete:\n  concurrency: 0\n",
		"log level":   "logging:\n  level: trace\n",
		"duration":    "tools:\n  timeout: soon\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("expected nil config for missing file, got %v %v", cfg, err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "sf config init") {
		t.Fatalf("expected hint in error, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOrDefault(dir)
	if err != nil || cfg == nil {
		t.Fatalf("load: %v", err)
	}
}
