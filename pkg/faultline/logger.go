// logger.go defines the pluggable logger used for debug-mode diagnostics.
// The SDK swallows almost every failure; the logger is how those otherwise
// silent failures surface for diagnosis.

package faultline

import (
	"fmt"
	"os"
)

// Logger receives SDK diagnostics. Debugf is emitted only in debug mode;
// Errorf reports contained failures.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// printLogger writes diagnostics to stderr with a package prefix.
type printLogger struct{}

// NewPrintLogger creates a logger that writes to stderr.
func NewPrintLogger() Logger {
	return printLogger{}
}

func (printLogger) Debugf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[faultline] debug: "+format+"\n", args...)
}

func (printLogger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[faultline] error: "+format+"\n", args...)
}

// noopLogger discards all diagnostics.
type noopLogger struct{}

// NewNoopLogger creates a logger that discards everything.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Debugf(format string, args ...any) {}
func (noopLogger) Errorf(format string, args ...any) {}
