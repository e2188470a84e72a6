// Package transcript keeps the ordered, append-only history of a chat
// session.
package transcript

import (
	"strings"
	"sync"
)

// Entry is one archived transcript item. The set of implementations is
// closed: QueryEntry, AnswerEntry, SourcesEntry and NoticeEntry. Entries are
// immutable once appended.
type Entry interface {
	// Empty reports whether the entry carries no renderable content.
	// Empty entries may exist in the transcript; hiding them is a
	// presentation concern.
	Empty() bool
}

// QueryEntry is a user query. Callers must not construct one with
// literally empty text.
type QueryEntry struct {
	Text string
}

func (e QueryEntry) Empty() bool { return e.Text == "" }

// AnswerEntry is an assistant answer, archived as the fragment list that was
// streamed for it.
type AnswerEntry struct {
	Fragments []string
}

func (e AnswerEntry) Empty() bool { return strings.Join(e.Fragments, "") == "" }

// Text returns the fragments joined in arrival order.
func (e AnswerEntry) Text() string { return strings.Join(e.Fragments, "") }

// SourcesEntry lists the sources that accompanied an answer.
type SourcesEntry struct {
	Sources []string
}

func (e SourcesEntry) Empty() bool { return len(e.Sources) == 0 }

// NoticeEntry is a synthesized system notice describing a context or
// session transition.
type NoticeEntry struct {
	Text string
}

func (e NoticeEntry) Empty() bool { return e.Text == "" }

// Transcript is the append-only ordered history of a session. Insertion
// order is chronological order; entries are never removed individually, only
// Clear resets the whole history.
type Transcript struct {
	mu       sync.RWMutex
	entries  []Entry
	onChange []func()
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// OnChange registers a callback invoked after every append or clear.
func (t *Transcript) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

// AppendBatch appends the entries in order as one atomic step: an observer
// reading Entries never sees a partial batch.
func (t *Transcript) AppendBatch(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	t.mu.Lock()
	t.entries = append(t.entries, entries...)
	t.mu.Unlock()
	t.notify()
}

// Clear removes all entries.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
	t.notify()
}

// Entries returns a copy of the history in chronological order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Transcript) notify() {
	t.mu.RLock()
	callbacks := make([]func(), len(t.onChange))
	copy(callbacks, t.onChange)
	t.mu.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}
