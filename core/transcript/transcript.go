// Package transcript keeps the turn-by-turn record of a conversation as it is
// reconstructed from interleaved realtime events.
package transcript

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrEntryOutOfRange = errors.New("transcript entry out of range")

type Entry struct {
	Role Role
	Text string
	// TurnID increases monotonically in insertion order.
	TurnID    int
	CreatedAt time.Time
}

// IsPlaceholder reports whether the entry was reserved but never filled.
func (e Entry) IsPlaceholder() bool {
	return e.Text == ""
}

// Transcript is an ordered list of entries. Entries are only ever appended or
// extended; indices handed out by AppendNewEntry stay valid until Reset.
type Transcript struct {
	entries    []Entry
	nextTurnID int

	now func() time.Time
	mu  sync.RWMutex
}

type Option func(*Transcript)

// WithClock replaces time.Now as the source of entry creation times.
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) {
		if now != nil {
			t.now = now
		}
	}
}

func New(opts ...Option) *Transcript {
	t := &Transcript{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AppendNewEntry adds an entry at the end and returns its index. Empty text
// creates a placeholder that later appends fill in.
func (t *Transcript) AppendNewEntry(role Role, text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextTurnID++
	t.entries = append(t.entries, Entry{
		Role:      role,
		Text:      text,
		TurnID:    t.nextTurnID,
		CreatedAt: t.now(),
	})
	return len(t.entries) - 1
}

// AppendToEntry extends the text of the entry at index.
func (t *Transcript) AppendToEntry(index int, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.entries) {
		return fmt.Errorf("%w: %d of %d", ErrEntryOutOfRange, index, len(t.entries))
	}
	t.entries[index].Text += text
	return nil
}

// Entry returns a copy of the entry at index.
func (t *Transcript) Entry(index int) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.entries) {
		return Entry{}, false
	}
	return t.entries[index], true
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// EntryCountAt reports how many entries existed at instant at.
func (t *Transcript) EntryCountAt(at time.Time) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, entry := range t.entries {
		if entry.CreatedAt.After(at) {
			break
		}
		count++
	}
	return count
}

// Snapshot returns a point-in-time copy of all entries.
func (t *Transcript) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
	t.nextTurnID = 0
}
