// Package stderr provides a transport that prints events to stderr in
// human-readable form. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// TransportOption configures the stderr transport.
type TransportOption func(*transportConfig)

type transportConfig struct {
	verbose bool
}

// WithVerbose enables full event details including the stack trace.
func WithVerbose() TransportOption {
	return func(c *transportConfig) {
		c.verbose = true
	}
}

// stderrTransport prints events to stderr.
type stderrTransport struct {
	verbose bool
}

// NewTransport creates a transport that writes to stderr. Every event is
// "delivered" locally, so Send always succeeds with a synthesized ID.
func NewTransport(opts ...TransportOption) faultline.Transport {
	cfg := &transportConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrTransport{
		verbose: cfg.verbose,
	}
}

// Send formats and prints the event.
func (t *stderrTransport) Send(ctx context.Context, event *faultline.Event) (string, error) {
	level := strings.ToUpper(string(event.Level))

	parts := []string{fmt.Sprintf("[FAULTLINE] %s %s", event.Timestamp, level)}
	if event.Environment != "" {
		parts = append(parts, fmt.Sprintf("env=%s", event.Environment))
	}
	if event.Release != "" {
		parts = append(parts, fmt.Sprintf("release=%s", event.Release))
	}
	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))

	if event.Message != "" {
		fmt.Fprintf(os.Stderr, "        Message: %s\n", event.Message)
	}
	if event.Fingerprint != "" {
		fmt.Fprintf(os.Stderr, "        Fingerprint: %s\n", event.Fingerprint)
	}
	if class, ok := event.Context["exception_class"].(string); ok && class != "" {
		fmt.Fprintf(os.Stderr, "        Exception: %s\n", class)
	}

	if t.verbose && event.StackTrace != "" {
		fmt.Fprintf(os.Stderr, "        Stack trace:\n")
		for _, line := range strings.Split(event.StackTrace, "\n") {
			fmt.Fprintf(os.Stderr, "          %s\n", line)
		}
	}

	return uuid.NewString(), nil
}
