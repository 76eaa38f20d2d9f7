// Package multi provides a transport that fans out to multiple transports.
// All transports receive all events; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// multiTransport fans out to multiple transports.
type multiTransport struct {
	transports []faultline.Transport
}

// NewTransport creates a transport that sends every event to all given
// transports, even when some fail. The first non-empty event ID wins;
// failures are aggregated via errors.Join and returned only when no
// transport delivered the event.
func NewTransport(transports ...faultline.Transport) faultline.Transport {
	return &multiTransport{
		transports: transports,
	}
}

// Send delivers the event to all transports.
func (t *multiTransport) Send(ctx context.Context, event *faultline.Event) (string, error) {
	var (
		firstID string
		errs    []error
	)
	for _, transport := range t.transports {
		id, err := transport.Send(ctx, event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if firstID == "" {
			firstID = id
		}
	}

	if firstID == "" && len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return firstID, nil
}
