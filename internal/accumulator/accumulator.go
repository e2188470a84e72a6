// Package accumulator folds streamed frames into the in-flight answer.
package accumulator

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tkoeck/askdocs/internal/protocol"
)

// Accumulator collects answer fragments and sources for the currently open
// exchange. Both lists are append-only within one streaming window; Reset
// opens a new window. Fragment order is arrival order and is never coalesced
// or deduplicated.
type Accumulator struct {
	mu        sync.RWMutex
	fragments []string
	sources   []string
	onChange  []func()
	logger    zerolog.Logger
}

// New creates an empty accumulator.
func New(logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		logger: logger.With().Str("component", "accumulator").Logger(),
	}
}

// OnChange registers a callback invoked after every mutation. The
// presentation layer subscribes here instead of polling.
func (a *Accumulator) OnChange(fn func()) {
	a.mu.Lock()
	a.onChange = append(a.onChange, fn)
	a.mu.Unlock()
}

// Reset clears both lists and starts a new streaming window.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.fragments = nil
	a.sources = nil
	a.mu.Unlock()
	a.notify()
}

// OnFrame appends the frame's content to the matching list. Unknown frame
// kinds are logged and dropped, never fatal.
func (a *Accumulator) OnFrame(frame protocol.Frame) {
	a.mu.Lock()
	switch f := frame.(type) {
	case protocol.TokenFrame:
		a.fragments = append(a.fragments, f.Token)
	case protocol.SourceFrame:
		a.sources = append(a.sources, f.Source)
	default:
		a.mu.Unlock()
		a.logger.Warn().Type("frame", frame).Msg("Dropping frame of unknown kind")
		return
	}
	a.mu.Unlock()
	a.notify()
}

// SetAnswer replaces the fragment list with a single synthesized fragment.
// Used for client-side notices such as the empty-query prompt.
func (a *Accumulator) SetAnswer(text string) {
	a.mu.Lock()
	a.fragments = []string{text}
	a.sources = nil
	a.mu.Unlock()
	a.notify()
}

// Text returns the fragments joined in arrival order with no separator.
func (a *Accumulator) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return strings.Join(a.fragments, "")
}

// Fragments returns a copy of the fragment list.
func (a *Accumulator) Fragments() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.fragments))
	copy(out, a.fragments)
	return out
}

// Sources returns a copy of the source list, in arrival order.
func (a *Accumulator) Sources() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.sources))
	copy(out, a.sources)
	return out
}

func (a *Accumulator) notify() {
	a.mu.RLock()
	callbacks := make([]func(), len(a.onChange))
	copy(callbacks, a.onChange)
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}
