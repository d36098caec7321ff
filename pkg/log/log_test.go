package log

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeDecodeEvent(t *testing.T) {
	event := NewRegistrationEvent("fd00::1", "tok-1", -1, "SUCCESS")

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent() failed: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() failed: %v", err)
	}
	if got.Category != CategoryRegistration {
		t.Errorf("Category = %v, want REGISTRATION", got.Category)
	}
	if got.Registration == nil {
		t.Fatal("Registration payload missing")
	}
	if got.Registration.Address != "fd00::1" || got.Registration.ChildIndex != -1 {
		t.Errorf("payload = %+v", got.Registration)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() failed: %v", err)
	}

	logger.Log(NewStateChangeEvent("TO_REGISTER", "REGISTERING", "fd00::1", "check fired"))
	logger.Log(NewRegistrationEvent("fd00::1", "tok-1", -1, ""))
	logger.Log(NewErrorEvent("store", nil))

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	// Close is idempotent and later Logs are ignored.
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
	logger.Log(NewErrorEvent("ignored", nil))

	events, err := ReadEvents(path, nil)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].StateChange == nil || events[0].StateChange.NewState != "REGISTERING" {
		t.Errorf("first event = %+v", events[0])
	}
}

func TestReadEventsFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() failed: %v", err)
	}
	logger.Log(NewStateChangeEvent("NOT_EXIST", "TO_REGISTER", "", ""))
	logger.Log(NewRegistrationEvent("fd00::1", "t", -1, ""))
	logger.Close()

	cat := CategoryRegistration
	events, err := ReadEvents(path, &Filter{Category: &cat})
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 1 || events[0].Registration == nil {
		t.Errorf("filtered events = %+v", events)
	}
}

func TestMultiLogger(t *testing.T) {
	var a, b []Event
	m := NewMultiLogger(
		FuncLogger(func(e Event) { a = append(a, e) }),
		FuncLogger(func(e Event) { b = append(b, e) }),
	)

	m.Log(NewErrorEvent("op", nil))

	if len(a) != 1 || len(b) != 1 {
		t.Errorf("fan-out delivered %d/%d events, want 1/1", len(a), len(b))
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(NewStateChangeEvent("REGISTERING", "REGISTERED", "fd00::1", "response"))

	out := buf.String()
	for _, want := range []string{"REGISTERING", "REGISTERED", "fd00::1"} {
		if !strings.Contains(out, want) {
			t.Errorf("slog output missing %q: %s", want, out)
		}
	}
}
