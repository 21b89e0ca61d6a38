package history

import (
	"fmt"
	"testing"

	"chainpulse/internal/models"
)

func newTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAppendAndReadAll(t *testing.T) {
	l := newTestLog(t)

	entry := models.PcrEntry{RecordedAt: "2026-08-31T10:15:00Z", Value: 1.5}
	if err := l.Append(&entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Error("Append should assign an ID")
	}

	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	// Round-trip must be byte-identical
	if got[0].RecordedAt != "2026-08-31T10:15:00Z" {
		t.Errorf("timestamp = %q, want byte-identical round-trip", got[0].RecordedAt)
	}
	if got[0].Value != 1.5 {
		t.Errorf("value = %v, want 1.5", got[0].Value)
	}
	if got[0].ID != entry.ID {
		t.Errorf("ID = %q, want %q", got[0].ID, entry.ID)
	}
}

func TestReadAll_InsertionOrder(t *testing.T) {
	l := newTestLog(t)

	for i := 0; i < 5; i++ {
		e := models.PcrEntry{
			RecordedAt: fmt.Sprintf("2026-08-31T10:%02d:00Z", i),
			Value:      float64(i) * 0.5,
		}
		if err := l.Append(&e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d entries, want 5", len(got))
	}
	for i, e := range got {
		want := fmt.Sprintf("2026-08-31T10:%02d:00Z", i)
		if e.RecordedAt != want {
			t.Errorf("entry %d out of order: %q", i, e.RecordedAt)
		}
	}
}

func TestAppend_EntriesAccumulate(t *testing.T) {
	l := newTestLog(t)

	for i := 0; i < 3; i++ {
		e := models.PcrEntry{RecordedAt: "2026-08-31T10:15:00Z", Value: 1.0}
		if err := l.Append(&e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	// Nothing ever removes an entry
	if len(got) != 3 {
		t.Errorf("got %d entries, want 3", len(got))
	}
}

func TestAppend_RejectsInvalidEntry(t *testing.T) {
	l := newTestLog(t)

	if err := l.Append(&models.PcrEntry{RecordedAt: "not-a-time", Value: 1.0}); err == nil {
		t.Error("expected error for invalid timestamp")
	}
	if err := l.Append(&models.PcrEntry{RecordedAt: "2026-08-31T10:15:00Z", Value: -1}); err == nil {
		t.Error("expected error for negative value")
	}

	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rejected entries must not be persisted, got %d", len(got))
	}
}

func TestReadAll_Empty(t *testing.T) {
	l := newTestLog(t)
	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}
