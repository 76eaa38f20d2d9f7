// Package async provides a transport wrapper with a bounded queue for
// callers that cannot afford to block on delivery. Events are accepted
// immediately and sent in the background; the oldest queued event is dropped
// when the queue is full.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// TransportOption configures the async transport.
type TransportOption func(*transportConfig)

type transportConfig struct {
	queueSize   int
	sendTimeout time.Duration
	onDropped   func(count int)
	onError     func(err error)
}

// WithQueueSize sets the maximum number of queued events (default: 100).
func WithQueueSize(size int) TransportOption {
	return func(c *transportConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithSendTimeout bounds each background delivery (default: 10s).
func WithSendTimeout(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		if d > 0 {
			c.sendTimeout = d
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue
// overflow.
func WithOnDropped(fn func(count int)) TransportOption {
	return func(c *transportConfig) {
		c.onDropped = fn
	}
}

// WithOnError sets a callback for background delivery failures. The error
// is tagged with faultline.MarkInternal, so forwarding it into a FatalSource
// cannot loop back through a capture.
func WithOnError(fn func(err error)) TransportOption {
	return func(c *transportConfig) {
		c.onError = fn
	}
}

// Transport wraps an inner transport with a bounded queue.
type Transport struct {
	inner       faultline.Transport
	queue       chan *faultline.Event
	done        chan struct{}
	closeOnce   sync.Once
	closeMu     sync.Mutex
	closed      bool
	wg          sync.WaitGroup
	sendTimeout time.Duration
	onDropped   func(count int)
	onError     func(err error)
}

var _ faultline.Transport = (*Transport)(nil)

// NewTransport wraps inner with a bounded queue for async delivery. Send
// returns immediately with a locally synthesized event ID; when the queue is
// full, the oldest queued event is dropped to make room.
func NewTransport(inner faultline.Transport, opts ...TransportOption) *Transport {
	cfg := &transportConfig{
		queueSize:   100,
		sendTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &Transport{
		inner:       inner,
		queue:       make(chan *faultline.Event, cfg.queueSize),
		done:        make(chan struct{}),
		sendTimeout: cfg.sendTimeout,
		onDropped:   cfg.onDropped,
		onError:     cfg.onError,
	}

	t.wg.Add(1)
	go t.processLoop()

	return t
}

// processLoop drains the queue and delivers to the inner transport.
func (t *Transport) processLoop() {
	defer t.wg.Done()
	for {
		select {
		case event, ok := <-t.queue:
			if !ok {
				return
			}
			t.deliver(event)
		case <-t.done:
			// Drain remaining events
			for {
				select {
				case event, ok := <-t.queue:
					if !ok {
						return
					}
					t.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver sends one event with a bounded timeout, reporting failures through
// the error callback.
func (t *Transport) deliver(event *faultline.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), t.sendTimeout)
	defer cancel()

	if _, err := t.inner.Send(ctx, event); err != nil && t.onError != nil {
		t.onError(faultline.MarkInternal(err))
	}
}

// Send enqueues the event and returns immediately with a synthesized ID.
// When the queue is full, the oldest event is dropped.
func (t *Transport) Send(ctx context.Context, event *faultline.Event) (string, error) {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return "", errors.New("async transport is closed")
	}
	t.closeMu.Unlock()

	select {
	case t.queue <- event:
		return uuid.NewString(), nil
	default:
		t.dropOldestAndEnqueue(event)
		return uuid.NewString(), nil
	}
}

// dropOldestAndEnqueue drops the oldest queued event to make room.
func (t *Transport) dropOldestAndEnqueue(event *faultline.Event) {
	select {
	case <-t.queue:
		if t.onDropped != nil {
			t.onDropped(1)
		}
	default:
		// Queue was emptied by the processor in the meantime.
	}

	select {
	case t.queue <- event:
	default:
		// Still full; drop the new event instead.
		if t.onDropped != nil {
			t.onDropped(1)
		}
	}
}

// Flush blocks until all queued events are delivered or ctx expires.
func (t *Transport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if len(t.queue) == 0 {
				// Give the in-flight event a moment to finish.
				time.Sleep(10 * time.Millisecond)
				return nil
			}
		}
	}
}

// Close stops the background processor after draining the queue.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		close(t.done)
		t.wg.Wait()
		close(t.queue)
	})
	return nil
}
