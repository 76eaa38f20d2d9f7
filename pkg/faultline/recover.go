// recover.go provides defer-based panic capture for HTTP handlers,
// goroutines, and other code outside a fatal-signal source.

package faultline

import (
	"context"
	"fmt"
	"runtime/debug"
)

// panicError adapts a recovered panic value into a structured error carrying
// the stack captured at recovery time.
type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string      { return formatPanicValue(e.value) }
func (e *panicError) StackTrace() string { return e.stack }

// formatPanicValue renders a recovered panic value as a message string.
func formatPanicValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	if err, ok := value.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", value)
}

// Recover captures an in-flight panic, records it at fatal level with an
// uncaught-handler marker, and returns the recovered value without
// re-panicking.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer client.Recover(ctx)
//	    // code that might panic
//	}
func (c *Client) Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	c.capturePanic(ctx, r, string(debug.Stack()))
	return r
}

// Recover is the package-level variant for call sites that carry the client
// in ctx (see WithClient). Without a client attached it only swallows the
// panic.
func Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	if client, ok := ClientFromContext(ctx); ok {
		client.capturePanic(ctx, r, string(debug.Stack()))
	}
	return r
}

// capturePanic records a recovered panic at fatal level, taking the same
// single-flight guard as CaptureError.
func (c *Client) capturePanic(ctx context.Context, value any, stack string) {
	if c.disabled {
		return
	}
	if !c.capturing.CompareAndSwap(false, true) {
		c.logger.Debugf("capture already in flight; dropping recovered panic")
		return
	}
	defer c.capturing.Store(false)

	perr := &panicError{value: value, stack: stack}
	_, _ = c.captureError(ctx, perr, LevelFatal, map[string]any{
		"handler": map[string]any{"uncaught": true},
	})
}
