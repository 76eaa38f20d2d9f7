// Package noop provides a no-operation transport that discards all events.
// Useful for tests and for disabling delivery without disabling capture.
package noop

import (
	"context"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// noopTransport discards all events.
type noopTransport struct{}

// NewTransport creates a transport that discards every event. Send returns
// an empty ID and no error, so captures resolve as dropped.
func NewTransport() faultline.Transport {
	return &noopTransport{}
}

// Send discards the event.
func (t *noopTransport) Send(ctx context.Context, event *faultline.Event) (string, error) {
	return "", nil
}
