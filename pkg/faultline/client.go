// client.go implements the capture pipeline: serialize, scrub, beforeSend,
// validate, dispatch, with single-flight reentrancy protection and full
// failure containment.

package faultline

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// DefaultBaseURL is the ingestion endpoint used when none is configured.
const DefaultBaseURL = "https://ingest.faultline.io"

// Transport timeout bounds. The hard maximum applies regardless of
// configuration so a capture call can never hang indefinitely.
const (
	DefaultTimeout = 10 * time.Second
	MaxTimeout     = 30 * time.Second
)

// DefaultFatalGraceDelay is how long a fatal-signal capture waits before
// terminating the process when exit-on-fatal is enabled.
const DefaultFatalGraceDelay = 2 * time.Second

// BeforeSendFunc is a caller-supplied transform over the fully built event,
// invoked just before validation and dispatch. Returning nil drops the event
// deliberately; a panic inside the hook aborts the capture and is never
// itself captured.
type BeforeSendFunc func(event *Event) *Event

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL         string
	environment     string
	serverName      string
	release         string
	maxBreadcrumbs  int
	timeout         time.Duration
	debug           bool
	disabled        bool
	beforeSend      BeforeSendFunc
	transport       Transport
	httpClient      *http.Client
	logger          Logger
	scrubber        *Scrubber
	contextLines    int
	fileReader      FileReader
	exitOnFatal     bool
	fatalGraceDelay time.Duration
	exitFunc        func(code int)
}

// WithBaseURL overrides the ingestion endpoint base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithEnvironment sets the environment stamped on every event.
func WithEnvironment(env string) Option {
	return func(c *clientConfig) { c.environment = env }
}

// WithServerName sets the server name stamped on every event. Defaults to
// the OS hostname.
func WithServerName(name string) Option {
	return func(c *clientConfig) { c.serverName = name }
}

// WithRelease sets the release identifier stamped on every event.
func WithRelease(release string) Option {
	return func(c *clientConfig) { c.release = release }
}

// WithMaxBreadcrumbs sets the breadcrumb buffer capacity (default 100).
func WithMaxBreadcrumbs(max int) Option {
	return func(c *clientConfig) { c.maxBreadcrumbs = max }
}

// WithTimeout sets the transport timeout. Values above the hard maximum are
// capped at MaxTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithDebug enables diagnostic logging of otherwise silent failures.
func WithDebug() Option {
	return func(c *clientConfig) { c.debug = true }
}

// WithDisabled turns capture off: every capture call returns immediately
// with no event.
func WithDisabled() Option {
	return func(c *clientConfig) { c.disabled = true }
}

// WithBeforeSend installs the pre-dispatch transform/filter hook.
func WithBeforeSend(fn BeforeSendFunc) Option {
	return func(c *clientConfig) { c.beforeSend = fn }
}

// WithTransport replaces the default HTTP ingest transport.
func WithTransport(t Transport) Option {
	return func(c *clientConfig) { c.transport = t }
}

// WithHTTPClient sets the HTTP client used by the default ingest transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithLogger replaces the default logger.
func WithLogger(l Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithScrubbing enables redaction of secrets and PII before dispatch.
func WithScrubbing(opts ...ScrubberOption) Option {
	return func(c *clientConfig) { c.scrubber = NewScrubber(opts...) }
}

// WithContextLines sets how many source lines surround each frame's line in
// code snippets (default 3).
func WithContextLines(n int) Option {
	return func(c *clientConfig) { c.contextLines = n }
}

// WithFileReader replaces the snippet source reader. Pass nil to disable
// snippets entirely.
func WithFileReader(r FileReader) Option {
	return func(c *clientConfig) { c.fileReader = r }
}

// WithExitOnFatal terminates the process after a fatal-signal capture,
// waiting the given grace delay first. Non-positive delay uses the default.
func WithExitOnFatal(grace time.Duration) Option {
	return func(c *clientConfig) {
		c.exitOnFatal = true
		if grace > 0 {
			c.fatalGraceDelay = grace
		}
	}
}

// withExitFunc replaces os.Exit; used by tests.
func withExitFunc(fn func(code int)) Option {
	return func(c *clientConfig) { c.exitFunc = fn }
}

// Client owns one Scope and one breadcrumb buffer and runs the capture
// pipeline against them. At most one error capture is in flight per client;
// reentrant attempts are rejected, not queued.
type Client struct {
	scope       *Scope
	breadcrumbs *BreadcrumbBuffer
	transport   Transport
	logger      Logger
	beforeSend  BeforeSendFunc
	scrubber    *Scrubber

	serializeOpts SerializeOptions
	timeout       time.Duration
	disabled      bool
	debug         bool

	exitOnFatal     bool
	fatalGraceDelay time.Duration
	exitFunc        func(code int)

	// capturing is the single-flight recursion guard for error captures.
	capturing atomic.Bool
}

// New creates a client. The ingest key is required; an empty key fails
// synchronously.
func New(ingestKey string, opts ...Option) (*Client, error) {
	if ingestKey == "" {
		return nil, errors.New("faultline: ingest key is required")
	}

	cfg := &clientConfig{
		baseURL:         DefaultBaseURL,
		timeout:         DefaultTimeout,
		contextLines:    DefaultContextLines,
		fileReader:      OSFileReader{},
		fatalGraceDelay: DefaultFatalGraceDelay,
		exitFunc:        os.Exit,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}
	if cfg.timeout > MaxTimeout {
		cfg.timeout = MaxTimeout
	}
	if cfg.serverName == "" {
		// Empty hostname is acceptable; the field is simply omitted.
		cfg.serverName, _ = os.Hostname()
	}
	if cfg.logger == nil {
		if cfg.debug {
			cfg.logger = NewPrintLogger()
		} else {
			cfg.logger = NewNoopLogger()
		}
	}
	if cfg.transport == nil {
		if cfg.disabled {
			cfg.transport = noopTransportInternal{}
		} else {
			cfg.transport = NewIngestTransport(cfg.baseURL, ingestKey, cfg.httpClient)
		}
	}

	return &Client{
		scope:       NewScope(),
		breadcrumbs: NewBreadcrumbBuffer(cfg.maxBreadcrumbs),
		transport:   cfg.transport,
		logger:      cfg.logger,
		beforeSend:  cfg.beforeSend,
		scrubber:    cfg.scrubber,
		serializeOpts: SerializeOptions{
			Environment:  cfg.environment,
			ServerName:   cfg.serverName,
			Release:      cfg.release,
			ContextLines: cfg.contextLines,
			FileReader:   cfg.fileReader,
		},
		timeout:         cfg.timeout,
		disabled:        cfg.disabled,
		debug:           cfg.debug,
		exitOnFatal:     cfg.exitOnFatal,
		fatalGraceDelay: cfg.fatalGraceDelay,
		exitFunc:        cfg.exitFunc,
	}, nil
}

// Scope returns the client's scope store.
func (c *Client) Scope() *Scope {
	return c.scope
}

// Breadcrumbs returns the client's breadcrumb buffer.
func (c *Client) Breadcrumbs() *BreadcrumbBuffer {
	return c.breadcrumbs
}

// AddBreadcrumb records a breadcrumb for subsequent events.
func (c *Client) AddBreadcrumb(crumb Breadcrumb) {
	c.breadcrumbs.Add(crumb)
}

// CaptureError captures an error value with optional per-call local context
// and returns the dispatched event ID, or "" when the event was dropped for
// any reason. The only returned error is ReservedKeyError for a local
// context key that may not be supplied per call; every other failure is
// contained.
//
// A second CaptureError arriving while one is in flight on the same client
// is rejected outright by the recursion guard. This stops an error thrown
// while building or sending event N from triggering a nested capture.
func (c *Client) CaptureError(ctx context.Context, value any, local map[string]any) (string, error) {
	if c.disabled {
		return "", nil
	}
	if !c.capturing.CompareAndSwap(false, true) {
		c.logger.Debugf("capture already in flight; dropping reentrant capture")
		return "", nil
	}
	defer c.capturing.Store(false)

	return c.captureError(ctx, value, LevelError, local)
}

// captureError runs the error pipeline without touching the guard; callers
// hold it.
func (c *Client) captureError(ctx context.Context, value any, level Level, local map[string]any) (string, error) {
	local = c.resolveLocal(ctx, local)
	return c.process(ctx, func() (*Event, error) {
		return SerializeError(value, level, c.scope, c.breadcrumbs.All(), local, c.serializeOpts)
	})
}

// CaptureMessage captures a plain message at the given level (info when
// empty). Message captures deliberately do not take the recursion guard:
// they never run stack capture or frame enrichment, so the only reentrancy
// surface is the beforeSend hook, whose failures are contained before any
// nested dispatch could start.
func (c *Client) CaptureMessage(ctx context.Context, message string, level Level, local map[string]any) (string, error) {
	if c.disabled {
		return "", nil
	}
	if level == "" {
		level = LevelInfo
	}

	local = c.resolveLocal(ctx, local)
	return c.process(ctx, func() (*Event, error) {
		return SerializeMessage(message, level, c.scope, c.breadcrumbs.All(), local, c.serializeOpts)
	})
}

// resolveLocal overlays explicit per-call context on any local context
// carried by ctx; the explicit argument wins on collision.
func (c *Client) resolveLocal(ctx context.Context, local map[string]any) map[string]any {
	if ctx == nil {
		return local
	}
	ctxLocal, ok := LocalContextFromContext(ctx)
	if !ok {
		return local
	}
	merged := maps.Clone(ctxLocal)
	maps.Copy(merged, local)
	return merged
}

// process runs serialize, scrub, beforeSend, validate, and dispatch with
// top-level containment: no failure below this point reaches the caller
// except ReservedKeyError from the merge.
func (c *Client) process(ctx context.Context, build func() (*Event, error)) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("capture pipeline panic contained: %v", r)
			id, err = "", nil
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	ev, serr := build()
	if serr != nil {
		var reserved *ReservedKeyError
		if errors.As(serr, &reserved) {
			return "", serr
		}
		c.logger.Errorf("serialize failed: %v", serr)
		return "", nil
	}

	if c.scrubber != nil {
		c.scrubber.ScrubEvent(ev)
	}

	if c.beforeSend != nil {
		out, ok := c.runBeforeSend(ev)
		if !ok {
			return "", nil
		}
		if out == nil {
			c.logger.Debugf("event dropped by beforeSend")
			return "", nil
		}
		ev = out
	}

	if verr := validateEvent(ev); verr != nil {
		c.logger.Errorf("event rejected before dispatch: %v", verr)
		return "", nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	eventID, terr := c.transport.Send(sendCtx, ev)
	if terr != nil {
		c.logger.Errorf("dispatch failed: %v", terr)
		return "", nil
	}
	return eventID, nil
}

// runBeforeSend invokes the hook with containment. A panicking hook aborts
// the capture; the hook's own failure is logged, never captured.
func (c *Client) runBeforeSend(ev *Event) (out *Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("beforeSend hook panicked: %v", r)
			out, ok = nil, false
		}
	}()
	return c.beforeSend(ev), true
}
