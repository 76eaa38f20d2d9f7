// context.go propagates the client and per-call local context through
// context.Context.

package faultline

import "context"

// Context key types (unexported to avoid collisions)
type clientKey struct{}
type localContextKey struct{}

// WithClient returns a context carrying the client, for code paths that
// cannot thread a *Client explicitly (deferred Recover, library callbacks).
func WithClient(ctx context.Context, client *Client) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// ClientFromContext extracts the client from ctx. Returns false when none is
// attached.
func ClientFromContext(ctx context.Context) (*Client, bool) {
	c, ok := ctx.Value(clientKey{}).(*Client)
	return c, ok && c != nil
}

// WithLocalContext returns a context carrying per-call local context that
// captures merge beneath their explicit local argument (the explicit
// argument wins on collision). The same reserved-key rules apply at merge
// time.
func WithLocalContext(ctx context.Context, local map[string]any) context.Context {
	return context.WithValue(ctx, localContextKey{}, local)
}

// LocalContextFromContext extracts attached local context from ctx.
func LocalContextFromContext(ctx context.Context) (map[string]any, bool) {
	m, ok := ctx.Value(localContextKey{}).(map[string]any)
	return m, ok && m != nil
}
