// faultline — operator tooling for the faultline error-tracking SDK.
// Validates config files and fires test events at an ingestion endpoint so a
// deployment can be verified before shipping the SDK inside an application.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/faultline-io/faultline-go/pkg/faultline"
	"github.com/faultline-io/faultline-go/pkg/faultline/transports/multi"
	"github.com/faultline-io/faultline-go/pkg/faultline/transports/stderr"
)

// version is set by ldflags at build time.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "faultline",
		Short:   "error-tracking SDK operator tooling",
		Long:    "Validates faultline config files and sends test events to verify an ingestion endpoint end to end.",
		Version: version,
	}

	var configPath string

	validateCmd := &cobra.Command{
		Use:   "validate-config",
		Short: "parse a config file and print the resolved settings",
		Long: `Loads a YAML config file, reports parse errors, and prints the resolved
settings with defaults applied.

Examples:
  faultline validate-config --config /etc/faultline.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := faultline.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.IngestKey == "" {
				return fmt.Errorf("%s: ingest_key is required", configPath)
			}

			printResolved(cfg)
			fmt.Println("config OK")
			return nil
		},
	}
	validateCmd.Flags().StringVar(&configPath, "config", "faultline.yaml", "path to the YAML config file")

	var (
		testMessage string
		testLevel   string
		testEcho    bool
	)
	testCmd := &cobra.Command{
		Use:   "test-event",
		Short: "send a test event through the configured transport",
		Long: `Builds a client from the config file and captures one synthetic error so
the full pipeline runs: serialization, enrichment, validation, dispatch.
Prints the event ID returned by the endpoint.

Examples:
  faultline test-event --config /etc/faultline.yaml
  faultline test-event --config /etc/faultline.yaml --message "deploy check" --level warning
  faultline test-event --config /etc/faultline.yaml --echo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := faultline.LoadConfig(configPath)
			if err != nil {
				return err
			}

			opts := cfg.Options()
			if testEcho {
				// Mirror every event to stderr alongside the real endpoint.
				ingest := faultline.NewIngestTransport(baseURL(cfg), cfg.IngestKey, nil)
				opts = append(opts, faultline.WithTransport(
					multi.NewTransport(ingest, stderr.NewTransport(stderr.WithVerbose())),
				))
			}

			client, err := faultline.New(cfg.IngestKey, opts...)
			if err != nil {
				return err
			}

			level := faultline.Level(testLevel)
			if !level.Valid() {
				return fmt.Errorf("unknown level %q", testLevel)
			}

			client.AddBreadcrumb(faultline.Breadcrumb{
				Category: "cli",
				Message:  "test-event invoked",
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			id, err := client.CaptureError(ctx, faultline.WithStack(fmt.Errorf("%s", testMessage)), map[string]any{
				"source": "faultline test-event",
				"level":  testLevel,
			})
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("event was not delivered; run with --echo or debug: true to inspect")
			}

			fmt.Printf("event delivered: %s\n", id)
			return nil
		},
	}
	testCmd.Flags().StringVar(&configPath, "config", "faultline.yaml", "path to the YAML config file")
	testCmd.Flags().StringVar(&testMessage, "message", "faultline test event", "message for the synthetic error")
	testCmd.Flags().StringVar(&testLevel, "level", "error", "severity level (debug|info|warning|error|fatal)")
	testCmd.Flags().BoolVar(&testEcho, "echo", false, "also print the event to stderr")

	rootCmd.AddCommand(validateCmd, testCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// baseURL resolves the endpoint from the config with the SDK default.
func baseURL(cfg *faultline.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return faultline.DefaultBaseURL
}

// printResolved prints the effective settings, defaults included.
func printResolved(cfg *faultline.Config) {
	fmt.Printf("  base_url:        %s\n", baseURL(cfg))
	fmt.Printf("  environment:     %s\n", orDefault(cfg.Environment, "(unset)"))
	fmt.Printf("  server_name:     %s\n", orDefault(cfg.ServerName, "(hostname)"))
	fmt.Printf("  release:         %s\n", orDefault(cfg.Release, "(unset)"))
	fmt.Printf("  max_breadcrumbs: %d\n", orDefaultInt(cfg.MaxBreadcrumbs, faultline.DefaultMaxBreadcrumbs))
	fmt.Printf("  timeout:         %s\n", resolvedTimeout(cfg))
	fmt.Printf("  scrub:           %v\n", cfg.Scrub)
	fmt.Printf("  disabled:        %v\n", cfg.Disabled)
	fmt.Printf("  exit_on_fatal:   %v\n", cfg.ExitOnFatal)
}

func resolvedTimeout(cfg *faultline.Config) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return faultline.DefaultTimeout
	}
	d := time.Duration(cfg.TimeoutSeconds) * time.Second
	if d > faultline.MaxTimeout {
		return faultline.MaxTimeout
	}
	return d
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
