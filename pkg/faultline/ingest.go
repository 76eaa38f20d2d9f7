// ingest.go implements the HTTPS transport that posts events to the remote
// ingestion endpoint. This is the default transport for a configured client.

package faultline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// ingestPath is the fixed event ingestion route under the base URL.
const ingestPath = "/api/ingest/v1/events"

// ingestKeyHeader authenticates the posting client.
const ingestKeyHeader = "X-Ingest-Key"

// maxErrorBodyBytes bounds how much of an error response body is read for
// diagnostics.
const maxErrorBodyBytes = 4096

// IngestTransport posts events as JSON to <baseURL>/api/ingest/v1/events.
//
// Response handling: 202 accepts the event (the body carries no ID, so one
// is synthesized locally); 401 means the ingest key is invalid; 400 carries
// a server-side validation detail. Every failure mode returns an error for
// the pipeline to contain; nothing is retried.
type IngestTransport struct {
	baseURL   string
	ingestKey string
	client    *http.Client
}

var _ Transport = (*IngestTransport)(nil)

// NewIngestTransport creates the HTTP transport for the given endpoint.
// httpClient may be nil, in which case http.DefaultClient is used; the
// per-send timeout is enforced by the caller through ctx.
func NewIngestTransport(baseURL, ingestKey string, httpClient *http.Client) *IngestTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &IngestTransport{
		baseURL:   baseURL,
		ingestKey: ingestKey,
		client:    httpClient,
	}
}

// Send implements Transport.
func (t *IngestTransport) Send(ctx context.Context, event *Event) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+ingestPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ingestKeyHeader, t.ingestKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send event: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		// The accepted response carries no ID; synthesize one locally.
		return uuid.NewString(), nil
	case http.StatusUnauthorized:
		return "", errors.New("invalid ingest key")
	case http.StatusBadRequest:
		detail := readErrorDetail(resp.Body)
		return "", fmt.Errorf("event rejected by server: %s", detail)
	default:
		return "", fmt.Errorf("unexpected status %d from ingest endpoint", resp.StatusCode)
	}
}

// readErrorDetail extracts the server-provided error detail from a 400
// response, falling back to the raw body text.
func readErrorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(body) == 0 {
		return "no detail provided"
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}
