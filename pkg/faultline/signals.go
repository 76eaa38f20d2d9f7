// signals.go treats process-level fatal conditions as an external signal
// stream the client subscribes to: uncaught panics and failed goroutines are
// converted into fatal captures tagged with their handler origin.

package faultline

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"
)

// SignalKind classifies a fatal signal.
type SignalKind string

const (
	// SignalPanic is an uncaught panic on the subscribing code path.
	SignalPanic SignalKind = "panic"

	// SignalGoroutineFailure is a failure escaping a supervised goroutine,
	// the closest Go analog of an unhandled async rejection.
	SignalGoroutineFailure SignalKind = "goroutine_failure"
)

// FatalSignal is one fatal condition emitted by a FatalSource.
type FatalSignal struct {
	Kind  SignalKind
	Value any
	Stack string
}

// FatalSource is an external stream of fatal signals. Subscribe registers a
// handler and returns a cancel function that unregisters it.
type FatalSource interface {
	Subscribe(handler func(FatalSignal)) (cancel func())
}

// SignalHub is the standard FatalSource: application code routes panics and
// goroutine failures through it, subscribers (clients) consume them.
type SignalHub struct {
	mu       sync.Mutex
	handlers map[int]func(FatalSignal)
	next     int
}

// NewSignalHub creates an empty hub.
func NewSignalHub() *SignalHub {
	return &SignalHub{handlers: make(map[int]func(FatalSignal))}
}

// Subscribe implements FatalSource.
func (h *SignalHub) Subscribe(handler func(FatalSignal)) (cancel func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.handlers[id] = handler
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	}
}

// Notify delivers a signal to all current subscribers.
func (h *SignalHub) Notify(sig FatalSignal) {
	h.mu.Lock()
	handlers := make([]func(FatalSignal), 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(sig)
	}
}

// Guard recovers an in-flight panic and emits it as a panic signal without
// re-panicking. Use in defer at goroutine or handler entry.
func (h *SignalHub) Guard() {
	if r := recover(); r != nil {
		h.Notify(FatalSignal{Kind: SignalPanic, Value: r, Stack: string(debug.Stack())})
	}
}

// Go runs fn on a new goroutine under supervision: a returned error or a
// panic is emitted as a goroutine-failure signal.
func (h *SignalHub) Go(fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.Notify(FatalSignal{Kind: SignalGoroutineFailure, Value: r, Stack: string(debug.Stack())})
			}
		}()
		if err := fn(); err != nil {
			h.Notify(FatalSignal{Kind: SignalGoroutineFailure, Value: err, Stack: captureStack(2, defaultStackDepth)})
		}
	}()
}

// internalError marks values that originate inside the SDK itself. The
// fatal-signal handler skips them so a failure while building or sending an
// event can never loop back through a capture. An explicit sentinel avoids
// the false positives and negatives of matching identifier strings in error
// text.
type internalError struct {
	err error
}

func (e *internalError) Error() string { return e.err.Error() }
func (e *internalError) Unwrap() error { return e.err }
func (e *internalError) sdkInternal()  {}

// sdkInternalMarker is satisfied by values the SDK tagged as self-origin.
type sdkInternalMarker interface {
	sdkInternal()
}

// MarkInternal tags an error as SDK-origin. Transports and integrations that
// forward their failures into a FatalSource use it so those failures are
// recognized and skipped instead of looping back through a capture.
func MarkInternal(err error) error {
	if err == nil {
		return nil
	}
	var already *internalError
	if errors.As(err, &already) {
		return err
	}
	return &internalError{err: err}
}

// IsSelfOrigin reports whether a signal value was produced by the SDK.
func IsSelfOrigin(value any) bool {
	if _, ok := value.(sdkInternalMarker); ok {
		return true
	}
	if err, ok := value.(error); ok {
		var internal *internalError
		return errors.As(err, &internal)
	}
	return false
}

// InstallFatalSource subscribes the client to a fatal-signal source. Each
// signal becomes a fatal-level capture tagged with its handler origin
// (uncaught / unhandled_rejection); self-origin signals are skipped. When
// exit-on-fatal is configured, a panic signal terminates the process after
// the grace delay. The returned cancel unsubscribes.
func (c *Client) InstallFatalSource(src FatalSource) (cancel func()) {
	return src.Subscribe(func(sig FatalSignal) {
		c.handleFatalSignal(sig)
	})
}

func (c *Client) handleFatalSignal(sig FatalSignal) {
	if IsSelfOrigin(sig.Value) {
		c.logger.Debugf("skipping self-origin fatal signal")
		return
	}
	if c.disabled {
		return
	}

	marker := map[string]any{"uncaught": true}
	if sig.Kind == SignalGoroutineFailure {
		marker = map[string]any{"unhandled_rejection": true}
	}

	// Failed goroutines deliver real errors; keep their concrete type for
	// exception_class instead of flattening everything to a panic.
	var value any = &panicError{value: sig.Value, stack: sig.Stack}
	if err, ok := sig.Value.(error); ok && sig.Kind == SignalGoroutineFailure {
		value = &stackError{err: err, stack: sig.Stack}
	}

	if c.capturing.CompareAndSwap(false, true) {
		_, _ = c.captureError(context.Background(), value, LevelFatal, map[string]any{
			"handler": marker,
		})
		c.capturing.Store(false)
	} else {
		c.logger.Debugf("capture already in flight; dropping fatal signal")
	}

	if c.exitOnFatal && sig.Kind == SignalPanic {
		time.Sleep(c.fatalGraceDelay)
		c.exitFunc(1)
	}
}
