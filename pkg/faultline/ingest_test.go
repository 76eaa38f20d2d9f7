package faultline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIngestTransport_Send_Accepted(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotEvent Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Ingest-Key")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotEvent); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	transport := NewIngestTransport(server.URL, "ik_live_123", nil)
	id, err := transport.Send(context.Background(), &Event{Message: "boom", Level: LevelError})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if id == "" {
		t.Error("202 should yield a synthesized event ID")
	}
	if gotPath != "/api/ingest/v1/events" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "ik_live_123" {
		t.Errorf("X-Ingest-Key = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotEvent.Message != "boom" || gotEvent.Level != LevelError {
		t.Errorf("posted event = %+v", gotEvent)
	}
}

func TestIngestTransport_Send_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	transport := NewIngestTransport(server.URL, "bad-key", nil)
	id, err := transport.Send(context.Background(), &Event{Message: "x", Level: LevelError})
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
	if err == nil || !strings.Contains(err.Error(), "invalid ingest key") {
		t.Errorf("err = %v, want an invalid-key error", err)
	}
}

func TestIngestTransport_Send_BadRequestDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"missing message field"}`))
	}))
	defer server.Close()

	transport := NewIngestTransport(server.URL, "ik", nil)
	_, err := transport.Send(context.Background(), &Event{Message: "x", Level: LevelError})
	if err == nil || !strings.Contains(err.Error(), "missing message field") {
		t.Errorf("err = %v, want the server detail", err)
	}
}

func TestIngestTransport_Send_BadRequestRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	transport := NewIngestTransport(server.URL, "ik", nil)
	_, err := transport.Send(context.Background(), &Event{Message: "x", Level: LevelError})
	if err == nil || !strings.Contains(err.Error(), "not json") {
		t.Errorf("err = %v, want the raw body as detail", err)
	}
}

func TestIngestTransport_Send_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport := NewIngestTransport(server.URL, "ik", nil)
	_, err := transport.Send(context.Background(), &Event{Message: "x", Level: LevelError})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want the unexpected status", err)
	}
}

func TestIngestTransport_Send_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	transport := NewIngestTransport(server.URL, "ik", nil)
	_, err := transport.Send(context.Background(), &Event{Message: "x", Level: LevelError})
	if err == nil {
		t.Error("expected a network error")
	}
}

func TestIngestTransport_Send_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := NewIngestTransport(server.URL, "ik", nil)
	_, err := transport.Send(ctx, &Event{Message: "x", Level: LevelError})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in the chain", err)
	}
}

func TestReadErrorDetail(t *testing.T) {
	if got := readErrorDetail(strings.NewReader(`{"error":"bad payload"}`)); got != "bad payload" {
		t.Errorf("json detail = %q", got)
	}
	if got := readErrorDetail(strings.NewReader("plain text")); got != "plain text" {
		t.Errorf("raw detail = %q", got)
	}
	if got := readErrorDetail(strings.NewReader("")); got != "no detail provided" {
		t.Errorf("empty detail = %q", got)
	}
}

func TestClient_EndToEnd_DefaultTransport(t *testing.T) {
	received := make(chan Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := New("ik_live_123", WithBaseURL(server.URL), WithFileReader(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id, err := client.CaptureError(context.Background(), WithStack(errors.New("end to end")), nil)
	if err != nil {
		t.Fatalf("CaptureError: %v", err)
	}
	if id == "" {
		t.Fatal("expected a synthesized event ID")
	}

	ev := <-received
	if ev.Message != "end to end" {
		t.Errorf("Message = %q", ev.Message)
	}
	if ev.StackTrace == "" {
		t.Error("expected a stack trace on the wire")
	}
	if !timestampRe.MatchString(ev.Timestamp) {
		t.Errorf("Timestamp = %q", ev.Timestamp)
	}
}
