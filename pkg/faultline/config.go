// config.go loads client configuration from YAML files, for deployments that
// prefer a config file over wiring options in code.

package faultline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors the client options in file form.
type Config struct {
	IngestKey   string `yaml:"ingest_key"`
	BaseURL     string `yaml:"base_url"`
	Environment string `yaml:"environment"`
	ServerName  string `yaml:"server_name"`
	Release     string `yaml:"release"`

	MaxBreadcrumbs int  `yaml:"max_breadcrumbs"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	ContextLines   int  `yaml:"context_lines"`
	Debug          bool `yaml:"debug"`
	Disabled       bool `yaml:"disabled"`
	Scrub          bool `yaml:"scrub"`

	ExitOnFatal      bool `yaml:"exit_on_fatal"`
	FatalGraceMillis int  `yaml:"fatal_grace_ms"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Options converts the file config into client options. Zero values fall
// through to the client defaults.
func (c *Config) Options() []Option {
	var opts []Option
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.Environment != "" {
		opts = append(opts, WithEnvironment(c.Environment))
	}
	if c.ServerName != "" {
		opts = append(opts, WithServerName(c.ServerName))
	}
	if c.Release != "" {
		opts = append(opts, WithRelease(c.Release))
	}
	if c.MaxBreadcrumbs > 0 {
		opts = append(opts, WithMaxBreadcrumbs(c.MaxBreadcrumbs))
	}
	if c.TimeoutSeconds > 0 {
		opts = append(opts, WithTimeout(time.Duration(c.TimeoutSeconds)*time.Second))
	}
	if c.ContextLines > 0 {
		opts = append(opts, WithContextLines(c.ContextLines))
	}
	if c.Debug {
		opts = append(opts, WithDebug())
	}
	if c.Disabled {
		opts = append(opts, WithDisabled())
	}
	if c.Scrub {
		opts = append(opts, WithScrubbing())
	}
	if c.ExitOnFatal {
		opts = append(opts, WithExitOnFatal(time.Duration(c.FatalGraceMillis)*time.Millisecond))
	}
	return opts
}

// NewFromConfig builds a client from a file config.
func NewFromConfig(cfg *Config) (*Client, error) {
	return New(cfg.IngestKey, cfg.Options()...)
}
