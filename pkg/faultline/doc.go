// Package faultline provides client-side error tracking for Go services.
//
// faultline captures errors, messages, and panics from a running process,
// enriches them with contextual metadata (breadcrumbs, tags, user identity,
// classified stack frames, source snippets), and forwards them to a remote
// ingestion endpoint. Delivery is fire-and-forget: if the transport fails,
// the event is dropped, never retried or buffered to disk.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Event: the wire-ready error representation with level, context, and frames
//   - Scope: per-client mutable tags/context/user applied to every capture
//   - BreadcrumbBuffer: bounded FIFO of recent actions preceding an error
//   - Client: the capture pipeline with a single-flight recursion guard
//   - Transport: destination for events (ingest endpoint, stderr, multi, async, noop)
//
// # Quick Start
//
//	client, err := faultline.New("ingest-key-123",
//	    faultline.WithEnvironment("production"),
//	    faultline.WithRelease("v1.4.2"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.Scope().SetTag("region", "eu-west-1")
//	client.CaptureError(ctx, faultline.WithStack(err), nil)
//
// For panic capture in handlers or goroutines:
//
//	defer client.Recover(ctx)
//
// # Design Principles
//
//   - The SDK must never crash the host: every failure past the API boundary
//     is contained, logged in debug mode, and collapses to a nil result
//   - Only ReservedKeyError surfaces synchronously; it signals programmer
//     misuse of the context API, not an environmental fault
//   - One capture in flight per client: reentrant error captures are rejected
//     outright, never queued
package faultline
