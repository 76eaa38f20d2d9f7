// serialize.go builds wire-ready events from captured values, the scope, and
// the breadcrumb snapshot. Serialization is a pure function over borrowed
// copies; it never mutates caller-owned structures.

package faultline

import (
	"encoding/json"
	"fmt"
	"time"
)

// inputKind tags the four shapes of captured input. Classification happens
// exactly once at the top of serialization; each kind has its own message
// and stack extraction rule.
type inputKind int

const (
	// kindStructuredError: an error carrying a stack trace (StackTracer).
	kindStructuredError inputKind = iota

	// kindErrorLike: a plain error, or a map with a "message" entry.
	kindErrorLike

	// kindStringMessage: a raw string thrown as an error.
	kindStringMessage

	// kindUnknown: nil or anything else.
	kindUnknown
)

// unknownErrorMessage is emitted when no message can be extracted at all.
const unknownErrorMessage = "Unknown error"

// classifyInput resolves the input kind for a captured value.
func classifyInput(value any) inputKind {
	switch v := value.(type) {
	case nil:
		return kindUnknown
	case error:
		if _, ok := v.(StackTracer); ok {
			return kindStructuredError
		}
		return kindErrorLike
	case string:
		return kindStringMessage
	case map[string]any:
		if _, ok := v["message"].(string); ok {
			return kindErrorLike
		}
		return kindUnknown
	default:
		return kindUnknown
	}
}

// extractMessage pulls the message string for the given kind.
func extractMessage(kind inputKind, value any) string {
	switch kind {
	case kindStructuredError, kindErrorLike:
		if err, ok := value.(error); ok {
			return err.Error()
		}
		if m, ok := value.(map[string]any); ok {
			if msg, ok := m["message"].(string); ok {
				return msg
			}
		}
	case kindStringMessage:
		return value.(string)
	}
	if value == nil {
		return unknownErrorMessage
	}
	if b, err := json.Marshal(value); err == nil {
		return string(b)
	}
	return unknownErrorMessage
}

// extractStack pulls the stack trace, present only on structured errors.
func extractStack(kind inputKind, value any) string {
	if kind != kindStructuredError {
		return ""
	}
	if st, ok := value.(StackTracer); ok {
		return st.StackTrace()
	}
	return ""
}

// exceptionClass resolves the runtime type name used for the
// exception_class field, falling back to the literal "Error" when the value
// is not a well-typed error.
func exceptionClass(value any) string {
	switch v := value.(type) {
	case *panicError:
		return "panic"
	case *stackError:
		return exceptionClass(v.err)
	case error:
		name := fmt.Sprintf("%T", v)
		for len(name) > 0 && name[0] == '*' {
			name = name[1:]
		}
		return name
	}
	return "Error"
}

// SerializeOptions carries the optional event attributes and enrichment
// collaborators for a single serialization.
type SerializeOptions struct {
	Environment  string
	ServerName   string
	Release      string
	ContextLines int
	FileReader   FileReader
}

// SerializeError builds an event from a captured error value plus the scope,
// breadcrumb snapshot, and per-call local context. Only a ReservedKeyError
// from the merge is returned; it surfaces misuse synchronously.
func SerializeError(value any, level Level, scope *Scope, breadcrumbs []Breadcrumb, local map[string]any, opts SerializeOptions) (*Event, error) {
	kind := classifyInput(value)
	stack := extractStack(kind, value)

	ev, system, err := assembleEvent(extractMessage(kind, value), level, scope, breadcrumbs, local, opts)
	if err != nil {
		return nil, err
	}

	system["exception_class"] = exceptionClass(value)

	var frames []StackFrame
	if stack != "" {
		ev.StackTrace = stack
		frames = EnrichStackTrace(stack, opts.ContextLines, opts.FileReader)
		system["frames"] = frames
	}

	ev.Fingerprint = fingerprintEvent(system["exception_class"].(string), frames, ev.Message)
	return ev, nil
}

// SerializeMessage builds an event from a plain message: no stack trace, no
// exception class, no frames.
func SerializeMessage(message string, level Level, scope *Scope, breadcrumbs []Breadcrumb, local map[string]any, opts SerializeOptions) (*Event, error) {
	ev, _, err := assembleEvent(message, level, scope, breadcrumbs, local, opts)
	if err != nil {
		return nil, err
	}
	ev.Fingerprint = fingerprintEvent("", nil, ev.Message)
	return ev, nil
}

// assembleEvent runs the shared serialization steps: merge the scope with
// local context, partition reserved keys into the system context, default
// queries, attach breadcrumbs, and stamp the envelope fields. The system
// context map is returned so error serialization can extend it.
func assembleEvent(message string, level Level, scope *Scope, breadcrumbs []Breadcrumb, local map[string]any, opts SerializeOptions) (*Event, map[string]any, error) {
	merged, err := scope.Merge(local)
	if err != nil {
		return nil, nil, err
	}

	system := make(map[string]any)
	extra := make(map[string]any)
	for key, val := range merged {
		if isReservedKey(key) {
			system[key] = val
		} else {
			extra[key] = val
		}
	}

	if _, ok := system["queries"]; !ok {
		system["queries"] = []any{}
	}
	if len(breadcrumbs) > 0 {
		system["breadcrumbs"] = breadcrumbs
	}

	ev := &Event{
		Message:     message,
		Level:       level,
		Context:     system,
		Environment: opts.Environment,
		ServerName:  opts.ServerName,
		Release:     opts.Release,
		Timestamp:   formatEventTimestamp(time.Now()),
	}
	// Never emit an empty extra_context object.
	if len(extra) > 0 {
		ev.ExtraContext = extra
	}
	return ev, system, nil
}
