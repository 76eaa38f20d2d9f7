// fingerprint.go generates stable hashes for grouping similar events.

package faultline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintFrameCount caps how many frames contribute to the hash.
const fingerprintFrameCount = 3

// fingerprintEvent hashes the stable parts of an event: the exception class
// and the first three classified frames (class and function names only).
// Variable data such as line numbers, timestamps, file paths, and snippet
// text is ignored so recurrences of one fault group together. Message-only
// events (no frames) fall back to hashing the message text.
func fingerprintEvent(exceptionClass string, frames []StackFrame, message string) string {
	parts := []string{exceptionClass}

	n := 0
	for _, frame := range frames {
		if n >= fingerprintFrameCount {
			break
		}
		name := frame.Function
		if frame.Class != "" {
			name = frame.Class + "." + frame.Function
		}
		if name == "" {
			continue
		}
		parts = append(parts, name)
		n++
	}

	if n == 0 {
		parts = append(parts, message)
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}
