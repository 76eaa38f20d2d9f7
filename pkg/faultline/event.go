// event.go defines the wire-ready event record and its building blocks.

package faultline

import "time"

// Level indicates the severity of a captured event.
type Level string

const (
	// LevelDebug marks diagnostic events of no operational consequence.
	LevelDebug Level = "debug"

	// LevelInfo marks informational events.
	LevelInfo Level = "info"

	// LevelWarning marks non-fatal issues that may need attention.
	LevelWarning Level = "warning"

	// LevelError marks recoverable errors that caused an operation to fail.
	LevelError Level = "error"

	// LevelFatal marks unrecoverable errors such as panics.
	LevelFatal Level = "fatal"
)

// Valid reports whether l is one of the five recognized levels.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelFatal:
		return true
	}
	return false
}

// Breadcrumb is a timestamped record of a user or system action preceding an
// error. Breadcrumbs are immutable once stored in the buffer.
type Breadcrumb struct {
	// Timestamp is the moment of the action in Unix milliseconds.
	// Filled with the current time when zero.
	Timestamp int64 `json:"timestamp"`

	// Type is an optional machine-readable kind (http, navigation, log).
	Type string `json:"type,omitempty"`

	// Category groups related breadcrumbs (auth, db, ui).
	Category string `json:"category,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message,omitempty"`

	// Level is the optional severity of the recorded action.
	Level Level `json:"level,omitempty"`

	// Data holds arbitrary structured details.
	Data map[string]any `json:"data,omitempty"`
}

// Call types for classified stack frames. Go stack text identifies methods
// by receiver syntax but cannot distinguish further, so classification is
// best-effort and defaults to instance.
const (
	CallTypeInstance = "instance"
	CallTypeStatic   = "static"
)

// Sentinel function names used when the real name cannot be recovered from
// the stack text.
const (
	FunctionConstructor = "{constructor}"
	FunctionClosure     = "{closure}"
)

// StackFrame is a parsed stack entry augmented with vendor/application
// classification and an optional source snippet. Frames are derived fresh on
// every capture and never persisted between calls.
type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Function string `json:"function,omitempty"`
	Class    string `json:"class,omitempty"`
	CallType string `json:"call_type,omitempty"`

	// CodeSnippet maps 1-based line numbers to source lines around the
	// frame's line. Omitted when the file cannot be read.
	CodeSnippet map[int]string `json:"code_snippet,omitempty"`

	// IsVendor and IsApplication are always complementary.
	IsVendor      bool `json:"is_vendor"`
	IsApplication bool `json:"is_application"`
}

// Event is the wire payload posted to the ingestion endpoint.
//
// Context holds exactly the system-owned reserved fields when present;
// ExtraContext holds everything else and is omitted entirely when empty.
// Optional scalar fields are omitted rather than sent as null.
type Event struct {
	Message      string         `json:"message"`
	Level        Level          `json:"level"`
	StackTrace   string         `json:"stack_trace,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	ExtraContext map[string]any `json:"extra_context,omitempty"`
	Environment  string         `json:"environment,omitempty"`
	ServerName   string         `json:"server_name,omitempty"`
	Release      string         `json:"release,omitempty"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

// eventTimestampLayout renders ISO-8601 UTC with millisecond precision.
const eventTimestampLayout = "2006-01-02T15:04:05.000Z"

// formatEventTimestamp formats t for the wire, always in UTC.
func formatEventTimestamp(t time.Time) string {
	return t.UTC().Format(eventTimestampLayout)
}
