package faultline

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSignalHub_SubscribeNotifyCancel(t *testing.T) {
	hub := NewSignalHub()

	var mu sync.Mutex
	var received []FatalSignal
	cancel := hub.Subscribe(func(sig FatalSignal) {
		mu.Lock()
		received = append(received, sig)
		mu.Unlock()
	})

	hub.Notify(FatalSignal{Kind: SignalPanic, Value: "one"})
	cancel()
	hub.Notify(FatalSignal{Kind: SignalPanic, Value: "two"})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("received %d signals, want 1 (cancel unsubscribes)", len(received))
	}
	if received[0].Value != "one" {
		t.Errorf("received[0].Value = %v", received[0].Value)
	}
}

func TestSignalHub_Guard_EmitsPanicSignal(t *testing.T) {
	hub := NewSignalHub()

	var got FatalSignal
	hub.Subscribe(func(sig FatalSignal) { got = sig })

	func() {
		defer hub.Guard()
		panic("guarded")
	}()

	if got.Kind != SignalPanic {
		t.Fatalf("Kind = %q, want panic", got.Kind)
	}
	if got.Value != "guarded" {
		t.Errorf("Value = %v, want guarded", got.Value)
	}
	if got.Stack == "" {
		t.Error("expected a recovery-time stack")
	}
}

func TestSignalHub_Go_ErrorReturn(t *testing.T) {
	hub := NewSignalHub()

	signals := make(chan FatalSignal, 1)
	hub.Subscribe(func(sig FatalSignal) { signals <- sig })

	failure := errors.New("worker failed")
	hub.Go(func() error { return failure })

	select {
	case sig := <-signals:
		if sig.Kind != SignalGoroutineFailure {
			t.Errorf("Kind = %q, want goroutine_failure", sig.Kind)
		}
		if sig.Value != failure {
			t.Errorf("Value = %v, want the returned error", sig.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no signal within 2s")
	}
}

func TestSignalHub_Go_PanicInGoroutine(t *testing.T) {
	hub := NewSignalHub()

	signals := make(chan FatalSignal, 1)
	hub.Subscribe(func(sig FatalSignal) { signals <- sig })

	hub.Go(func() error { panic("worker panic") })

	select {
	case sig := <-signals:
		if sig.Kind != SignalGoroutineFailure {
			t.Errorf("Kind = %q, want goroutine_failure", sig.Kind)
		}
		if sig.Value != "worker panic" {
			t.Errorf("Value = %v", sig.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no signal within 2s")
	}
}

func TestSignalHub_Go_NilErrorIsSilent(t *testing.T) {
	hub := NewSignalHub()

	signals := make(chan FatalSignal, 1)
	hub.Subscribe(func(sig FatalSignal) { signals <- sig })

	done := make(chan struct{})
	hub.Go(func() error { close(done); return nil })
	<-done

	select {
	case sig := <-signals:
		t.Fatalf("unexpected signal %v for a clean goroutine", sig)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClient_InstallFatalSource_PanicSignal(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)
	hub := NewSignalHub()
	cancel := client.InstallFatalSource(hub)
	defer cancel()

	hub.Notify(FatalSignal{Kind: SignalPanic, Value: "blown", Stack: "main.run()\n\t/app/main.go:20 +0x19\n"})

	if transport.count() != 1 {
		t.Fatalf("transport calls = %d, want 1", transport.count())
	}
	ev := transport.last()
	if ev.Level != LevelFatal {
		t.Errorf("Level = %q, want fatal", ev.Level)
	}
	if ev.Context["exception_class"] != "panic" {
		t.Errorf("exception_class = %v, want panic", ev.Context["exception_class"])
	}
	handler, _ := ev.ExtraContext["handler"].(map[string]any)
	if handler["uncaught"] != true {
		t.Errorf("handler marker = %v, want uncaught=true", handler)
	}
}

func TestClient_InstallFatalSource_GoroutineFailureMarker(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)
	hub := NewSignalHub()
	defer client.InstallFatalSource(hub)()

	hub.Notify(FatalSignal{Kind: SignalGoroutineFailure, Value: errors.New("worker died")})

	ev := transport.last()
	if ev == nil {
		t.Fatal("no event dispatched")
	}
	handler, _ := ev.ExtraContext["handler"].(map[string]any)
	if handler["unhandled_rejection"] != true {
		t.Errorf("handler marker = %v, want unhandled_rejection=true", handler)
	}
	// The concrete error type survives as exception_class.
	if ev.Context["exception_class"] != "errors.errorString" {
		t.Errorf("exception_class = %v, want errors.errorString", ev.Context["exception_class"])
	}
	if ev.Message != "worker died" {
		t.Errorf("Message = %q", ev.Message)
	}
}

func TestClient_InstallFatalSource_SkipsSelfOrigin(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)
	hub := NewSignalHub()
	defer client.InstallFatalSource(hub)()

	hub.Notify(FatalSignal{
		Kind:  SignalGoroutineFailure,
		Value: MarkInternal(errors.New("dispatch failed")),
	})

	if transport.count() != 0 {
		t.Error("self-origin signals must not be captured")
	}
}

func TestClient_InstallFatalSource_ExitOnFatal(t *testing.T) {
	transport := &recordingTransport{}
	exited := make(chan int, 1)
	client := newTestClient(t, transport,
		WithExitOnFatal(time.Millisecond),
		withExitFunc(func(code int) { exited <- code }),
	)
	hub := NewSignalHub()
	defer client.InstallFatalSource(hub)()

	hub.Notify(FatalSignal{Kind: SignalPanic, Value: "fatal"})

	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("exit func not invoked")
	}
	if transport.count() != 1 {
		t.Errorf("transport calls = %d, want 1 (capture precedes exit)", transport.count())
	}
}

func TestClient_InstallFatalSource_NoExitForGoroutineFailure(t *testing.T) {
	transport := &recordingTransport{}
	exited := make(chan int, 1)
	client := newTestClient(t, transport,
		WithExitOnFatal(time.Millisecond),
		withExitFunc(func(code int) { exited <- code }),
	)
	hub := NewSignalHub()
	defer client.InstallFatalSource(hub)()

	hub.Notify(FatalSignal{Kind: SignalGoroutineFailure, Value: errors.New("worker died")})

	select {
	case <-exited:
		t.Error("goroutine failure should not terminate the process")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMarkInternal(t *testing.T) {
	if MarkInternal(nil) != nil {
		t.Error("MarkInternal(nil) should be nil")
	}

	base := errors.New("boom")
	marked := MarkInternal(base)
	if !IsSelfOrigin(marked) {
		t.Error("marked error should be self-origin")
	}
	if !errors.Is(marked, base) {
		t.Error("marking should preserve the error chain")
	}
	if MarkInternal(marked) != marked {
		t.Error("double-marking should be a no-op")
	}
}

func TestIsSelfOrigin(t *testing.T) {
	if IsSelfOrigin(errors.New("plain")) {
		t.Error("plain errors are not self-origin")
	}
	if IsSelfOrigin("a string value") {
		t.Error("non-error values are not self-origin")
	}
	if !IsSelfOrigin(MarkInternal(errors.New("x"))) {
		t.Error("marked errors are self-origin")
	}

	// Errors wrapping a marked error are still recognized.
	wrapped := errorWrap{MarkInternal(errors.New("inner"))}
	if !IsSelfOrigin(wrapped) {
		t.Error("wrapping should not hide the self-origin marker")
	}
}

type errorWrap struct{ inner error }

func (e errorWrap) Error() string { return "wrapped: " + e.inner.Error() }
func (e errorWrap) Unwrap() error { return e.inner }

func TestClient_GuardedByRecursionFlag_DropsFatalSignal(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)
	hub := NewSignalHub()
	defer client.InstallFatalSource(hub)()

	// Simulate a capture in flight.
	client.capturing.Store(true)
	hub.Notify(FatalSignal{Kind: SignalPanic, Value: "nested"})
	client.capturing.Store(false)

	if transport.count() != 0 {
		t.Error("fatal signal during an in-flight capture should be dropped")
	}
}
