// scrub.go implements opt-in redaction of secrets and PII from built events,
// applied between serialization and the beforeSend hook.

package faultline

import (
	"regexp"
	"strings"
)

// messageScrubPatterns match secret and PII shapes inside free text.
// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9-]{10,}`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                              // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),         // card number
}

// sensitiveKeyPatterns flag context keys whose values are redacted wholesale
// (case-insensitive substring match).
var sensitiveKeyPatterns = []string{
	"token",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
	"api_key",
	"apikey",
}

// pathNormalizationPatterns strip user-specific directories from traces.
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
}

const redactedPlaceholder = "[REDACTED]"

// Scrubber redacts sensitive data from events before they leave the process.
type Scrubber struct {
	extraKeyPatterns []string
}

// ScrubberOption configures a Scrubber.
type ScrubberOption func(*Scrubber)

// WithSensitiveKeys adds extra context key substrings to redact.
func WithSensitiveKeys(keys ...string) ScrubberOption {
	return func(s *Scrubber) {
		for _, k := range keys {
			s.extraKeyPatterns = append(s.extraKeyPatterns, strings.ToLower(k))
		}
	}
}

// NewScrubber creates a scrubber with the default pattern set.
func NewScrubber(opts ...ScrubberOption) *Scrubber {
	s := &Scrubber{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrubEvent redacts the event in place: message text, stack trace paths,
// user record, and both context partitions.
func (s *Scrubber) ScrubEvent(ev *Event) {
	ev.Message = s.scrubText(ev.Message)
	ev.StackTrace = s.scrubStackTrace(ev.StackTrace)
	ev.Context = s.scrubMap(ev.Context)
	ev.ExtraContext = s.scrubMap(ev.ExtraContext)
}

// scrubText applies all secret/PII patterns to free text.
func (s *Scrubber) scrubText(text string) string {
	if text == "" {
		return text
	}
	for _, pattern := range messageScrubPatterns {
		text = pattern.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// scrubStackTrace normalizes user-specific paths.
func (s *Scrubber) scrubStackTrace(trace string) string {
	if trace == "" {
		return trace
	}
	for _, pattern := range pathNormalizationPatterns {
		trace = pattern.ReplaceAllString(trace, "/[PATH]/")
	}
	return trace
}

// scrubMap recursively redacts sensitive keys and scrubs string values.
func (s *Scrubber) scrubMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		if s.isSensitiveKey(key) {
			out[key] = redactedPlaceholder
			continue
		}
		out[key] = s.scrubValue(value)
	}
	return out
}

func (s *Scrubber) scrubValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return s.scrubMap(v)
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, val := range v {
			if s.isSensitiveKey(key) {
				out[key] = redactedPlaceholder
			} else {
				out[key] = s.scrubText(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.scrubValue(item)
		}
		return out
	case string:
		return s.scrubText(v)
	default:
		// Numbers, booleans, structured frames, breadcrumbs pass through.
		return v
	}
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	for _, pattern := range s.extraKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
