// stack.go provides selective stack capture and the WithStack error wrapper.
//
// Capture uses runtime.Callers + runtime.CallersFrames for accurate frame
// resolution (handles inlining correctly), with a bounded depth. The rendered
// text uses the same shape as runtime traces so one parser handles both
// captured and recovered stacks:
//
//	pkg/path.Function()
//		/abs/path/file.go:42

package faultline

import (
	"fmt"
	"runtime"
	"strings"
)

// StackTracer is implemented by error values that carry a stack trace.
// Errors without one are treated as plain error-like input: they produce a
// message but no stack_trace and no enriched frames.
type StackTracer interface {
	StackTrace() string
}

// defaultStackDepth bounds capture work on exceptional paths.
const defaultStackDepth = 64

// stackError attaches a captured stack to an error.
type stackError struct {
	err   error
	stack string
}

func (e *stackError) Error() string      { return e.err.Error() }
func (e *stackError) Unwrap() error      { return e.err }
func (e *stackError) StackTrace() string { return e.stack }

// WithStack returns err annotated with the stack of the caller. It is a
// no-op for nil errors and for errors that already carry a stack.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(StackTracer); ok {
		return err
	}
	// Skip WithStack itself so the trace starts at the caller.
	return &stackError{err: err, stack: captureStack(1, defaultStackDepth)}
}

// captureStack records up to maxDepth frames, skipping skip caller frames,
// and renders them in runtime-trace shape.
//
// Skip accounting: +2 covers runtime.Callers and captureStack itself, so
// skip=0 places the first frame at captureStack's caller.
func captureStack(skip, maxDepth int) string {
	if maxDepth <= 0 {
		maxDepth = defaultStackDepth
	}

	pc := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pc[:n])
	var b strings.Builder
	for {
		fr, more := frames.Next()
		if fr.Function != "" {
			fmt.Fprintf(&b, "%s()\n\t%s:%d\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}
