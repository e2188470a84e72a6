// Package session orchestrates the streaming chat session: it wires channel
// events into the accumulator and decides when the in-flight exchange is
// archived into the transcript.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tkoeck/askdocs/internal/accumulator"
	"github.com/tkoeck/askdocs/internal/channel"
	"github.com/tkoeck/askdocs/internal/protocol"
	"github.com/tkoeck/askdocs/internal/selection"
	"github.com/tkoeck/askdocs/internal/transcript"
)

// State is the controller state.
type State int

const (
	// StateIdle means no query is in flight. The channel may or may not
	// be connected.
	StateIdle State = iota
	// StateStreaming means a query was sent and inbound frames feed the
	// accumulator.
	StateStreaming
	// StateSwitching is the transient state while a context change is
	// being archived.
	StateSwitching
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateSwitching:
		return "switching"
	default:
		return "unknown"
	}
}

// Notice and answer texts synthesized by the controller.
const (
	GreetingNotice   = "Hi! I am your documentation Assistant. How can I help you today?"
	EmptyQueryAnswer = "Please enter a query..."

	noProductNotice     = "We are not talking about any specific product. Please choose one or tell me how can I help you!"
	noProductSwitch     = "Ok, we are not talking about any specific product."
	productNoticeFormat = "We are talking about **%s** version **%s**. Ask me any question!"
	productSwitchFormat = "Ok, we are now talking about **%s** version **%s**."
)

// Channel is the streaming connection the controller drives. Implemented by
// channel.Channel; tests substitute a fake.
type Channel interface {
	Open(ctx context.Context) error
	Send(payload protocol.QueryPayload) error
	Events() <-chan protocol.Frame
	State() channel.State
	Close() error
}

// CollectionLister fetches the collection candidate set at session start.
type CollectionLister interface {
	List(ctx context.Context) ([]selection.Collection, error)
}

// Controller is the session state machine. It is the sole writer of the
// transcript and the selection context; the presentation layer observes them
// read-only. All entry points serialize through one mutex so the
// append-order invariants hold on multi-threaded runtimes too.
type Controller struct {
	mu sync.Mutex

	state      State
	channel    Channel
	acc        *accumulator.Accumulator
	sel        *selection.Context
	transcript *transcript.Transcript
	logger     zerolog.Logger

	pumpDone chan struct{}
}

// New creates a controller around the given collaborators and subscribes to
// selection changes.
func New(ch Channel, acc *accumulator.Accumulator, sel *selection.Context, tr *transcript.Transcript, logger zerolog.Logger) *Controller {
	c := &Controller{
		state:      StateIdle,
		channel:    ch,
		acc:        acc,
		sel:        sel,
		transcript: tr,
		logger:     logger.With().Str("component", "session").Logger(),
	}
	sel.OnChange(c.handleContextChange)
	return c
}

// Start fetches the collection candidate set, seeds the greeting, opens the
// channel and begins pumping inbound frames. A failed collection fetch
// degrades to an empty candidate set; a failed dial leaves the session
// Idle-and-disconnected.
func (c *Controller) Start(ctx context.Context, lister CollectionLister) error {
	collections, err := lister.List(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Collection fetch failed, continuing without product scoping")
		collections = nil
	}
	c.sel.SetCollections(collections)

	c.transcript.AppendBatch(transcript.NoticeEntry{Text: GreetingNotice})

	if err := c.channel.Open(ctx); err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c.pumpDone = make(chan struct{})
	go c.pump(c.channel.Events())
	return nil
}

// pump forwards inbound frames to the accumulator in arrival order. It exits
// when the channel's event sequence ends, i.e. on transport closure.
func (c *Controller) pump(events <-chan protocol.Frame) {
	defer close(c.pumpDone)
	for frame := range events {
		c.mu.Lock()
		c.acc.OnFrame(frame)
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.logger.Info().Msg("Channel closed, session idle")
}

// Submit sends a query. While the channel is not Open the submit is refused
// with channel.ErrNotConnected and nothing changes. A blank query archives
// the open exchange and short-circuits to a synthesized answer without any
// network send. Otherwise the open exchange is archived (answer, sources,
// then the new query), the accumulator is reset and the query goes out.
func (c *Controller) Submit(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel.State() != channel.StateOpen {
		return channel.ErrNotConnected
	}

	answerEntry := transcript.AnswerEntry{Fragments: c.acc.Fragments()}
	sourcesEntry := transcript.SourcesEntry{Sources: c.acc.Sources()}

	if strings.TrimSpace(text) == "" {
		c.transcript.AppendBatch(answerEntry, sourcesEntry)
		c.acc.SetAnswer(EmptyQueryAnswer)
		c.state = StateIdle
		return nil
	}

	c.transcript.AppendBatch(answerEntry, sourcesEntry, transcript.QueryEntry{Text: text})
	c.acc.Reset()

	payload := protocol.QueryPayload{
		Query:           text,
		Collection:      c.sel.ContextID(),
		ProductFullName: c.sel.ProductFullName(),
		Version:         c.sel.Version(),
	}
	if err := c.channel.Send(payload); err != nil {
		c.state = StateIdle
		return err
	}

	c.state = StateStreaming
	c.logger.Debug().Str("collection", payload.Collection).Msg("Query sent")
	return nil
}

// SelectProduct changes the active product. The selection context emits the
// resulting change back into handleContextChange.
func (c *Controller) SelectProduct(product string) {
	c.sel.SetProduct(product)
}

// SelectVersion changes the active version.
func (c *Controller) SelectVersion(version string) {
	c.sel.SetVersion(version)
}

// SelectLanguage changes the active language.
func (c *Controller) SelectLanguage(language string) {
	c.sel.SetLanguage(language)
}

// handleContextChange archives the open exchange (even when empty), appends
// exactly one system notice describing the new context and returns to Idle.
func (c *Controller) handleContextChange(change selection.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateSwitching

	notice := noProductSwitch
	if !change.None {
		notice = fmt.Sprintf(productSwitchFormat, change.ProductFullName, change.Version)
	}
	c.transcript.AppendBatch(
		transcript.AnswerEntry{Fragments: c.acc.Fragments()},
		transcript.SourcesEntry{Sources: c.acc.Sources()},
		transcript.NoticeEntry{Text: notice},
	)
	c.acc.Reset()
	c.state = StateIdle
}

// ResetConversation clears the transcript and the accumulator and seeds a
// single notice describing the active context. Calling it twice leaves the
// same single-entry transcript as calling it once.
func (c *Controller) ResetConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transcript.Clear()
	c.acc.Reset()

	notice := noProductNotice
	if c.sel.Scoped() {
		notice = fmt.Sprintf(productNoticeFormat, c.sel.ProductFullName(), c.sel.Version())
	}
	c.transcript.AppendBatch(transcript.NoticeEntry{Text: notice})
	c.state = StateIdle
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is Open.
func (c *Controller) Connected() bool {
	return c.channel.State() == channel.StateOpen
}

// Close shuts the channel down and waits for the frame pump to drain.
func (c *Controller) Close() error {
	err := c.channel.Close()
	if c.pumpDone != nil {
		<-c.pumpDone
	}
	return err
}
