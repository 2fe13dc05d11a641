package transcript

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAppendNewEntryReturnsInsertionIndex(t *testing.T) {
	tr := New()

	if idx := tr.AppendNewEntry(RoleAssistant, "Hi"); idx != 0 {
		t.Fatalf("expected first index 0, got %d", idx)
	}
	if idx := tr.AppendNewEntry(RoleUser, ""); idx != 1 {
		t.Fatalf("expected second index 1, got %d", idx)
	}
	if tr.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", tr.Len())
	}

	snapshot := tr.Snapshot()
	if snapshot[0].TurnID >= snapshot[1].TurnID {
		t.Fatalf("expected turn ids to increase, got %d then %d", snapshot[0].TurnID, snapshot[1].TurnID)
	}
	if !snapshot[1].IsPlaceholder() {
		t.Fatalf("expected empty entry to be a placeholder")
	}
}

func TestAppendToEntryExtendsText(t *testing.T) {
	tr := New()
	idx := tr.AppendNewEntry(RoleUser, "")

	if err := tr.AppendToEntry(idx, "User: "); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	if err := tr.AppendToEntry(idx, "hello"); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}

	entry, ok := tr.Entry(idx)
	if !ok || entry.Text != "User: hello" {
		t.Fatalf("expected %q, got %q", "User: hello", entry.Text)
	}
}

func TestAppendToEntryRejectsOutOfRange(t *testing.T) {
	tr := New()
	tr.AppendNewEntry(RoleAssistant, "")

	for _, idx := range []int{-1, 1, 5} {
		if err := tr.AppendToEntry(idx, "x"); !errors.Is(err, ErrEntryOutOfRange) {
			t.Fatalf("expected out of range for %d, got %v", idx, err)
		}
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	tr := New()
	tr.AppendNewEntry(RoleAssistant, "a")

	snapshot := tr.Snapshot()
	snapshot[0].Text = "changed"
	tr.AppendToEntry(0, "b")

	if entry, _ := tr.Entry(0); entry.Text != "ab" {
		t.Fatalf("expected transcript to be unaffected by snapshot edits, got %q", entry.Text)
	}
	if snapshot[0].Text != "changed" {
		t.Fatalf("expected snapshot to be unaffected by later appends, got %q", snapshot[0].Text)
	}
}

func TestEntryCountAt(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	tr := New(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	tr.AppendNewEntry(RoleAssistant, "one")
	tr.AppendNewEntry(RoleUser, "two")
	tr.AppendNewEntry(RoleAssistant, "three")

	if got := tr.EntryCountAt(base); got != 0 {
		t.Fatalf("expected 0 entries before the first, got %d", got)
	}
	if got := tr.EntryCountAt(base.Add(2 * time.Second)); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
	if got := tr.EntryCountAt(base.Add(time.Minute)); got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}
}

func TestResetClearsEntriesAndTurnIDs(t *testing.T) {
	tr := New()
	tr.AppendNewEntry(RoleAssistant, "a")
	tr.Reset()

	if tr.Len() != 0 {
		t.Fatalf("expected empty transcript after reset, got %d", tr.Len())
	}
	tr.AppendNewEntry(RoleAssistant, "b")
	if entry, _ := tr.Entry(0); entry.TurnID != 1 {
		t.Fatalf("expected turn ids to restart, got %d", entry.TurnID)
	}
}

func TestConcurrentReadersDuringAppends(t *testing.T) {
	tr := New()
	idx := tr.AppendNewEntry(RoleAssistant, "")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			tr.AppendToEntry(idx, "x")
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			_ = tr.Snapshot()
		}
	}()
	wg.Wait()

	if entry, _ := tr.Entry(idx); len(entry.Text) != 200 {
		t.Fatalf("expected 200 appended runes, got %d", len(entry.Text))
	}
}

func TestExportSkipsPlaceholdersAndNamesByTime(t *testing.T) {
	entries := []Entry{
		{Role: RoleAssistant, Text: "Hello there"},
		{Role: RoleUser, Text: "User: hi"},
		{Role: RoleAssistant, Text: ""},
		{Role: RoleAssistant, Text: "How can I help?"},
	}

	artifact := Export(entries, time.Date(2024, 5, 1, 13, 4, 5, 999, time.UTC))

	if artifact.Name != "conversation-2024-05-01T13-04-05.txt" {
		t.Fatalf("unexpected artifact name %q", artifact.Name)
	}
	if want := "Hello there\nUser: hi\nHow can I help?"; artifact.Content != want {
		t.Fatalf("expected content %q, got %q", want, artifact.Content)
	}
}
