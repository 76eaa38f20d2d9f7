package faultline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faultline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfigFile(t, `
ingest_key: ik_live_123
base_url: https://ingest.internal.example
environment: production
server_name: web-1
release: v2.0.1
max_breadcrumbs: 50
timeout_seconds: 5
context_lines: 2
debug: true
disabled: false
scrub: true
exit_on_fatal: true
fatal_grace_ms: 500
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.IngestKey != "ik_live_123" {
		t.Errorf("IngestKey = %q", cfg.IngestKey)
	}
	if cfg.BaseURL != "https://ingest.internal.example" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Environment != "production" || cfg.ServerName != "web-1" || cfg.Release != "v2.0.1" {
		t.Errorf("envelope = %q/%q/%q", cfg.Environment, cfg.ServerName, cfg.Release)
	}
	if cfg.MaxBreadcrumbs != 50 || cfg.TimeoutSeconds != 5 || cfg.ContextLines != 2 {
		t.Errorf("numeric fields = %d/%d/%d", cfg.MaxBreadcrumbs, cfg.TimeoutSeconds, cfg.ContextLines)
	}
	if !cfg.Debug || cfg.Disabled || !cfg.Scrub {
		t.Errorf("flags = debug:%v disabled:%v scrub:%v", cfg.Debug, cfg.Disabled, cfg.Scrub)
	}
	if !cfg.ExitOnFatal || cfg.FatalGraceMillis != 500 {
		t.Errorf("fatal = %v/%d", cfg.ExitOnFatal, cfg.FatalGraceMillis)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "ingest_key: [unterminated")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestConfig_Options_ZeroValuesFallThrough(t *testing.T) {
	cfg := &Config{IngestKey: "ik"}
	if opts := cfg.Options(); len(opts) != 0 {
		t.Errorf("empty config produced %d options, want 0", len(opts))
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := &Config{
		IngestKey:      "ik_live_123",
		TimeoutSeconds: 5,
		Environment:    "staging",
	}

	client, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if client.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.timeout)
	}
	if client.serializeOpts.Environment != "staging" {
		t.Errorf("environment = %q", client.serializeOpts.Environment)
	}
}

func TestNewFromConfig_MissingKey(t *testing.T) {
	if _, err := NewFromConfig(&Config{}); err == nil {
		t.Error("expected an error for a missing ingest key")
	}
}
