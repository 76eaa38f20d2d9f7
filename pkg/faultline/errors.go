// errors.go defines the error taxonomy surfaced or contained by the SDK.

package faultline

import "fmt"

// ReservedKeyError reports an attempt to set or override an SDK-managed
// context field. It is the only error the SDK surfaces synchronously: it
// signals programmer misuse of the API, not a runtime fault.
type ReservedKeyError struct {
	Key string
}

func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("faultline: context key %q is reserved", e.Key)
}

// ValidationError reports an event that failed size or shape rules at
// dispatch time. It is contained by the pipeline: dispatch is skipped and
// the caller sees a nil result, never this error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("faultline: invalid event field %q: %s", e.Field, e.Reason)
}
