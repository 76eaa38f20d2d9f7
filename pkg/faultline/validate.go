// validate.go enforces the size-bounded truncation policy in the
// validate-before-send step. Limits live here, not in the serializer, so a
// beforeSend hook sees the full event and its output is still bounded.

package faultline

import (
	"encoding/json"
	"fmt"
)

// Wire size limits enforced before dispatch.
const (
	MaxMessageLength    = 10_000
	MaxStackTraceLength = 500_000
	MaxContextBytes     = 256_000
)

const (
	messageTruncationSuffix = "...[truncated]"
	stackTruncationSuffix   = "\n...[truncated]"
)

// validateEvent applies the size rules in place. Oversized scalar fields are
// truncated with a marker; an oversized context is replaced wholesale by an
// error placeholder. An invalid level rejects the event outright: fail
// closed, do not send.
func validateEvent(ev *Event) error {
	if !ev.Level.Valid() {
		return &ValidationError{Field: "level", Reason: fmt.Sprintf("unknown level %q", ev.Level)}
	}

	if len(ev.Message) > MaxMessageLength {
		ev.Message = ev.Message[:MaxMessageLength] + messageTruncationSuffix
	}
	if len(ev.StackTrace) > MaxStackTraceLength {
		ev.StackTrace = ev.StackTrace[:MaxStackTraceLength] + stackTruncationSuffix
	}

	ev.Context = boundContextMap(ev.Context)
	if ev.ExtraContext != nil {
		ev.ExtraContext = boundContextMap(ev.ExtraContext)
	}
	return nil
}

// boundContextMap returns m unchanged when its serialized form fits within
// MaxContextBytes, or a placeholder describing the overflow otherwise. A map
// that cannot be serialized at all is also replaced; raw data is never sent.
func boundContextMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return map[string]any{
			"_error":    "context could not be serialized",
			"_max_size": MaxContextBytes,
		}
	}
	if len(b) > MaxContextBytes {
		return map[string]any{
			"_error":         fmt.Sprintf("context too large (%d bytes)", len(b)),
			"_original_size": len(b),
			"_max_size":      MaxContextBytes,
		}
	}
	return m
}
