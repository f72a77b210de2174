package logging

import (
	"errors"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, maxHist int) *Logger {
	t.Helper()
	l, err := New(&Config{
		LogDir:     t.TempDir(),
		Level:      LevelDebug,
		MaxHistory: maxHist,
		Console:    false,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLogger_HistoryRecordsEntries(t *testing.T) {
	l := newTestLogger(t, 100)

	l.Info("chat", "message sent", map[string]interface{}{"personaId": 2})
	l.Warn("audio", "playback failed", nil)

	// New itself logs one startup entry
	hist := l.GetHistory(0)
	if len(hist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist))
	}

	last := hist[len(hist)-1]
	if last.Level != "warn" || last.Component != "audio" || last.Message != "playback failed" {
		t.Errorf("unexpected last entry: %+v", last)
	}
	if hist[1].Data != "personaId=2" {
		t.Errorf("Data = %q, want personaId=2", hist[1].Data)
	}
}

func TestLogger_ErrorEntriesCarryError(t *testing.T) {
	l := newTestLogger(t, 100)

	l.Error("api", "request failed", errors.New("connection refused"), map[string]interface{}{"path": "/health"})

	hist := l.GetHistory(1)
	if len(hist) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(hist))
	}
	if hist[0].Data != "path=/health, error=connection refused" {
		t.Errorf("Data = %q", hist[0].Data)
	}
}

func TestLogger_HistoryRingDropsOldest(t *testing.T) {
	l := newTestLogger(t, 5)

	for i := 0; i < 20; i++ {
		l.Debug("test", "entry", map[string]interface{}{"i": i})
	}

	hist := l.GetHistory(0)
	if len(hist) != 5 {
		t.Fatalf("expected ring capped at 5, got %d", len(hist))
	}
	if hist[4].Data != "i=19" {
		t.Errorf("newest entry Data = %q, want i=19", hist[4].Data)
	}
}

func TestLogger_GetHistoryLimit(t *testing.T) {
	l := newTestLogger(t, 100)
	for i := 0; i < 10; i++ {
		l.Debug("test", "entry", nil)
	}

	if got := len(l.GetHistory(3)); got != 3 {
		t.Errorf("GetHistory(3) returned %d entries", got)
	}
	// Oversized limits return everything
	if got := len(l.GetHistory(1000)); got != 11 {
		t.Errorf("GetHistory(1000) returned %d entries", got)
	}
}

func TestLogger_OnLogStreamsEntries(t *testing.T) {
	l := newTestLogger(t, 100)

	got := make(chan LogEntry, 1)
	l.SetOnLog(func(e LogEntry) { got <- e })

	l.Info("bridge", "bound", nil)

	select {
	case e := <-got:
		if e.Message != "bound" {
			t.Errorf("streamed entry = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("OnLog callback never fired")
	}
}
