// transport.go defines the Transport interface for event delivery.

package faultline

import "context"

// Transport delivers wire-ready events to their destination. Implementations
// must be safe for concurrent use and must never panic across this boundary;
// failures are reported as errors, which the capture pipeline contains and
// collapses to a nil result.
type Transport interface {
	// Send delivers one event and returns its event ID. A dropped or
	// rejected event returns an empty ID with an error describing why.
	Send(ctx context.Context, event *Event) (string, error)
}

// noopTransportInternal discards events; used when capture is disabled.
// Kept internal to avoid an import cycle with the transports packages.
type noopTransportInternal struct{}

func (noopTransportInternal) Send(ctx context.Context, event *Event) (string, error) {
	return "", nil
}
