// enrich.go parses raw stack trace text into structured, classified frames
// with optional source snippets.

package faultline

import (
	"bufio"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// DefaultContextLines is the number of source lines fetched before and after
// a frame's line for its code snippet.
const DefaultContextLines = 3

// FileReader reads line ranges from source files for code snippets. The
// enricher swallows every read failure; a frame simply goes out without a
// snippet.
type FileReader interface {
	// ReadLines returns the lines in [from, to] (1-based, inclusive, clamped
	// to file bounds) keyed by line number.
	ReadLines(path string, from, to int) (map[int]string, error)
}

// OSFileReader reads snippets from the local filesystem.
type OSFileReader struct{}

// ReadLines implements FileReader.
func (OSFileReader) ReadLines(path string, from, to int) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if from < 1 {
		from = 1
	}

	lines := make(map[int]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if n > to {
			break
		}
		if n >= from {
			lines[n] = scanner.Text()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// rawFrame is a parsed but not yet classified stack entry.
type rawFrame struct {
	name   string
	file   string
	line   int
	column int
}

var (
	goroutineHeaderRe = regexp.MustCompile(`^goroutine \d+ \[[^\]]*\]:$`)

	// Location lines: "\t/path/file.go:42 +0x1f" or "file.go:42:7".
	locationRe = regexp.MustCompile(`^\s*([^\s()]+):(\d+)(?::(\d+))?(?:\s+\+0x[0-9a-fA-F]+)?$`)

	// Single-line frames: "pkg.Func (file.go:42:7)".
	inlineFrameRe = regexp.MustCompile(`^\s*(\S+)\s+\(([^\s()]+):(\d+)(?::(\d+))?\)$`)

	closureTokenRe      = regexp.MustCompile(`^func\d+(\.\d+)?$`)
	constructorNameRe   = regexp.MustCompile(`^New([A-Z][A-Za-z0-9_]*)$`)
	createdByPrefix     = "created by "
	inGoroutineSuffixRe = regexp.MustCompile(`\s+in goroutine \d+$`)
)

// EnrichStackTrace parses a raw trace into ordered, classified frames
// (innermost call first), attaching source snippets through reader when it
// is non-nil. Malformed lines are skipped silently, never surfaced. Results
// are recomputed fresh on every call and never cached.
func EnrichStackTrace(trace string, contextLines int, reader FileReader) []StackFrame {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}

	raws := parseRawFrames(trace)
	if len(raws) == 0 {
		return nil
	}

	frames := make([]StackFrame, 0, len(raws))
	for _, raw := range raws {
		class, function, callType := classifyFrame(raw.name)
		vendor := isVendorPath(raw.file)

		frame := StackFrame{
			File:          raw.file,
			Line:          raw.line,
			Column:        raw.column,
			Function:      function,
			Class:         class,
			CallType:      callType,
			IsVendor:      vendor,
			IsApplication: !vendor,
		}

		if reader != nil && raw.line >= 1 {
			from := raw.line - contextLines
			if from < 1 {
				from = 1
			}
			snippet, err := reader.ReadLines(raw.file, from, raw.line+contextLines)
			if err == nil && len(snippet) > 0 {
				frame.CodeSnippet = snippet
			}
		}

		frames = append(frames, frame)
	}
	return frames
}

// parseRawFrames walks the trace line by line. Runtime traces interleave a
// function line with a tab-indented location line; single-line frames carry
// the location in parentheses. Anything else (headers, blanks, summary text)
// is discarded.
func parseRawFrames(trace string) []rawFrame {
	var (
		frames  []rawFrame
		pending string
	)

	for _, line := range strings.Split(trace, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || goroutineHeaderRe.MatchString(trimmed) {
			continue
		}

		if m := inlineFrameRe.FindStringSubmatch(line); m != nil {
			frames = append(frames, rawFrame{
				name:   m[1],
				file:   m[2],
				line:   atoi(m[3]),
				column: atoi(m[4]),
			})
			pending = ""
			continue
		}

		if m := locationRe.FindStringSubmatch(line); m != nil && looksLikePath(m[1]) {
			frames = append(frames, rawFrame{
				name:   pending,
				file:   m[1],
				line:   atoi(m[2]),
				column: atoi(m[3]),
			})
			pending = ""
			continue
		}

		// Function line: remember it and pair with the next location line.
		// An earlier function line that never got a location is dropped.
		if name, ok := functionLineName(trimmed); ok {
			pending = name
		}
	}
	return frames
}

// functionLineName extracts the function name from a runtime trace function
// line, stripping the argument list and "created by" decoration.
func functionLineName(line string) (string, bool) {
	line = strings.TrimPrefix(line, createdByPrefix)
	line = inGoroutineSuffixRe.ReplaceAllString(line, "")

	// The argument list opens at the last parenthesis; receiver parens like
	// (*Server) sit earlier in the name.
	if idx := strings.LastIndex(line, "("); idx > 0 && strings.HasSuffix(line, ")") {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.ContainsAny(line, " \t") {
		return "", false
	}
	return line, true
}

// classifyFrame splits a rendered Go function name into class, function, and
// call type. Go stack text cannot distinguish further than receiver syntax,
// so methods default to instance; constructors are recognized by the NewType
// naming shape. Best-effort only.
func classifyFrame(name string) (class, function, callType string) {
	if name == "" {
		return "", FunctionClosure, ""
	}

	// Drop the import path, keep "pkg.(*Type).Method.func1".
	base := name
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}

	tokens := strings.Split(base, ".")
	if len(tokens) > 1 {
		tokens = tokens[1:] // leading token is the package name
	}

	// Peel closure suffixes: "handle.func1" is a closure inside handle.
	closure := false
	for len(tokens) > 0 && closureTokenRe.MatchString(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
		closure = true
	}

	if len(tokens) == 0 {
		return "", FunctionClosure, ""
	}

	if len(tokens) >= 2 {
		class = strings.Trim(tokens[0], "(*)")
		function = tokens[1]
		if closure {
			function = FunctionClosure
		}
		return class, function, CallTypeInstance
	}

	function = tokens[0]
	if closure {
		return "", FunctionClosure, ""
	}
	if m := constructorNameRe.FindStringSubmatch(function); m != nil {
		return m[1], FunctionConstructor, CallTypeInstance
	}
	return "", function, ""
}

// vendorPathMarkers flag dependency directories: the module cache and
// vendored trees.
var vendorPathMarkers = []string{"/pkg/mod/", "/vendor/"}

// isVendorPath reports whether file lives in a dependency directory or the
// Go installation rather than application code.
func isVendorPath(file string) bool {
	for _, marker := range vendorPathMarkers {
		if strings.Contains(file, marker) {
			return true
		}
	}
	if goroot := runtime.GOROOT(); goroot != "" && strings.HasPrefix(file, goroot+string(os.PathSeparator)) {
		return true
	}
	return false
}

// looksLikePath filters out message lines that happen to contain a colon and
// digits but are not file locations.
func looksLikePath(s string) bool {
	return strings.ContainsAny(s, `/\`) || strings.HasSuffix(s, ".go")
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
