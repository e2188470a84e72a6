// Package channel owns the duplex streaming connection to the
// answer-generation backend.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tkoeck/askdocs/internal/config"
	"github.com/tkoeck/askdocs/internal/protocol"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Send when the channel is not Open.
var ErrNotConnected = errors.New("channel not connected")

// ErrTransportClosed is returned when the underlying transport went away
// unexpectedly. No automatic reconnect is attempted.
var ErrTransportClosed = errors.New("transport closed")

// Channel is a single duplex streaming connection per session. Construction
// assigns a process-unique correlation id which is appended to the endpoint
// path so the backend can route frames for this session.
//
// The correlation id is a routing hint, not a security boundary; no
// collaborator may assume uniqueness across processes.
type Channel struct {
	wsBaseURL     string
	correlationID string

	dialer       *websocket.Dialer
	writeTimeout time.Duration
	maxMsgSize   int64
	logger       zerolog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	state   State
	conn    *websocket.Conn
	events  chan protocol.Frame
}

// New creates a disconnected channel for the backend named in cfg.
func New(cfg *config.Config, logger zerolog.Logger) *Channel {
	id := uuid.New().String()
	return &Channel{
		wsBaseURL:     deriveWSBase(cfg.BackendAPIURL),
		correlationID: id,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		writeTimeout: cfg.WriteTimeout,
		maxMsgSize:   cfg.MaxMessageSize,
		logger:       logger.With().Str("component", "channel").Str("client_id", id).Logger(),
	}
}

// deriveWSBase turns the backend API base URL into the websocket base:
// the scheme flips http->ws (https->wss) and a trailing /api segment is
// replaced by /ws.
func deriveWSBase(apiURL string) string {
	base := apiURL
	if strings.HasPrefix(base, "https") {
		base = "wss" + strings.TrimPrefix(base, "https")
	} else if strings.HasPrefix(base, "http") {
		base = "ws" + strings.TrimPrefix(base, "http")
	}
	base = strings.TrimSuffix(base, "/")
	base = strings.TrimSuffix(base, "/api")
	return base + "/ws"
}

// CorrelationID returns the per-session routing id.
func (c *Channel) CorrelationID() string {
	return c.correlationID
}

// Endpoint returns the full websocket URL the channel dials.
func (c *Channel) Endpoint() string {
	return c.wsBaseURL + "/query/" + c.correlationID
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the backend. Valid from Disconnected or Closed; any transport
// failure leaves the channel Closed.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected && c.state != StateClosed {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot open channel in state %s", state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	endpoint := c.Endpoint()
	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	conn.SetReadLimit(c.maxMsgSize)

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.events = make(chan protocol.Frame, 256)
	events := c.events
	c.mu.Unlock()

	c.logger.Info().Str("endpoint", endpoint).Msg("Channel open")
	go c.readPump(conn, events)
	return nil
}

// Events returns the inbound frame sequence for the current connection. The
// channel is closed when the transport closes; the sequence is not
// restartable, a reopened connection gets a fresh one.
func (c *Channel) Events() <-chan protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Send writes the query payload. Outside Open it fails with ErrNotConnected;
// the failure is reported, never thrown across the caller.
func (c *Channel) Send(payload protocol.QueryPayload) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("failed to send query: %w", err)
	}
	return nil
}

// Close shuts the connection down. Idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.state != StateOpen {
		if c.state != StateClosed {
			c.state = StateClosed
		}
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := conn.Close()

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	return err
}

// readPump decodes inbound wire frames and delivers them in network-arrival
// order. Malformed frames are logged and dropped. Frames read after Close
// are discarded, not buffered. The events channel is closed when the pump
// exits, which is how the controller learns about transport closure.
func (c *Channel) readPump(conn *websocket.Conn, events chan protocol.Frame) {
	defer close(events)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			unexpected := c.state == StateOpen
			c.state = StateClosed
			c.mu.Unlock()

			if unexpected && websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("Transport closed unexpectedly")
			} else {
				c.logger.Debug().Err(err).Msg("Channel read loop finished")
			}
			return
		}

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			var unknown *protocol.UnknownTypeError
			if errors.As(err, &unknown) {
				c.logger.Warn().Str("frame_type", unknown.Type).Msg("Dropping frame of unknown type")
			} else {
				c.logger.Warn().Err(err).Msg("Dropping unparseable frame")
			}
			continue
		}

		c.mu.Lock()
		deliver := c.state == StateOpen
		c.mu.Unlock()
		if !deliver {
			// Arrived after Close; discard.
			continue
		}
		events <- frame
	}
}
