package transcript

import (
	"testing"
)

func TestAppendBatchKeepsOrder(t *testing.T) {
	tr := New()

	tr.AppendBatch(
		AnswerEntry{Fragments: []string{"Hi", " there"}},
		SourcesEntry{Sources: []string{"https://x"}},
		QueryEntry{Text: "hello"},
	)

	entries := tr.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if _, ok := entries[0].(AnswerEntry); !ok {
		t.Fatalf("entry 0 is %T, want AnswerEntry", entries[0])
	}
	if _, ok := entries[1].(SourcesEntry); !ok {
		t.Fatalf("entry 1 is %T, want SourcesEntry", entries[1])
	}
	if query, ok := entries[2].(QueryEntry); !ok || query.Text != "hello" {
		t.Fatalf("entry 2 is %#v, want QueryEntry{hello}", entries[2])
	}
}

func TestAppendBatchIsAtomicForObservers(t *testing.T) {
	tr := New()

	// Every change notification must observe a length that corresponds to a
	// whole batch, never part of one.
	var observed []int
	tr.OnChange(func() { observed = append(observed, tr.Len()) })

	tr.AppendBatch(QueryEntry{Text: "q1"}, AnswerEntry{Fragments: []string{"a1"}})
	tr.AppendBatch(QueryEntry{Text: "q2"}, AnswerEntry{Fragments: []string{"a2"}}, SourcesEntry{Sources: []string{"s"}})

	if len(observed) != 2 || observed[0] != 2 || observed[1] != 5 {
		t.Fatalf("observers saw partial batches: %v", observed)
	}
}

func TestAppendEmptyBatchIsNoop(t *testing.T) {
	tr := New()

	var notified bool
	tr.OnChange(func() { notified = true })

	tr.AppendBatch()

	if notified || tr.Len() != 0 {
		t.Fatalf("empty batch mutated transcript")
	}
}

func TestClearResetsHistory(t *testing.T) {
	tr := New()
	tr.AppendBatch(QueryEntry{Text: "q"})

	tr.Clear()

	if tr.Len() != 0 {
		t.Fatalf("expected empty transcript, got %d entries", tr.Len())
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	tr := New()
	tr.AppendBatch(QueryEntry{Text: "q"})

	entries := tr.Entries()
	entries[0] = NoticeEntry{Text: "mutated"}

	if _, ok := tr.Entries()[0].(QueryEntry); !ok {
		t.Fatalf("caller mutation leaked into transcript")
	}
}

func TestEmptyHelpers(t *testing.T) {
	cases := []struct {
		name  string
		entry Entry
		empty bool
	}{
		{"blank query", QueryEntry{Text: ""}, true},
		{"query", QueryEntry{Text: "q"}, false},
		{"no fragments", AnswerEntry{}, true},
		{"empty fragments", AnswerEntry{Fragments: []string{"", ""}}, true},
		{"answer", AnswerEntry{Fragments: []string{"", "a"}}, false},
		{"no sources", SourcesEntry{}, true},
		{"sources", SourcesEntry{Sources: []string{"s"}}, false},
		{"blank notice", NoticeEntry{}, true},
		{"notice", NoticeEntry{Text: "n"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.Empty(); got != tc.empty {
				t.Fatalf("Empty() = %v, want %v", got, tc.empty)
			}
		})
	}
}

func TestAnswerEntryText(t *testing.T) {
	entry := AnswerEntry{Fragments: []string{"Hi", " ", "there"}}
	if got := entry.Text(); got != "Hi there" {
		t.Fatalf("Text() = %q", got)
	}
}
