// Package stub provides a stand-in documentation backend for local
// development and integration tests. It serves the collection listing and a
// query websocket that streams canned token and source frames in the same
// wire shape the production backend uses.
package stub

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tkoeck/askdocs/internal/protocol"
	"github.com/tkoeck/askdocs/internal/selection"
)

// Server is the stub backend.
type Server struct {
	echo        *echo.Echo
	collections []selection.Collection
	upgrader    websocket.Upgrader
	tokenDelay  time.Duration
	logger      zerolog.Logger
}

// Option configures the stub server.
type Option func(*Server)

// WithTokenDelay sets the pause between streamed tokens. Zero means no
// pause, which is what the tests want.
func WithTokenDelay(d time.Duration) Option {
	return func(s *Server) {
		s.tokenDelay = d
	}
}

// WithCollections replaces the default collection listing.
func WithCollections(collections []selection.Collection) Option {
	return func(s *Server) {
		s.collections = collections
	}
}

// DefaultCollections is the listing served when none is configured.
func DefaultCollections() []selection.Collection {
	return []selection.Collection{
		{Product: "None", ProductFullName: "None", Version: []string{""}, Language: "en"},
		{Product: "Foo", ProductFullName: "Foo Platform", Version: []string{"1.0", "2.0"}, Language: "en"},
		{Product: "Bar", ProductFullName: "Bar Suite", Version: []string{"3.1"}, Language: "en"},
	}
}

// NewServer creates a stub backend with routes registered.
func NewServer(logger zerolog.Logger, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		collections: DefaultCollections(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		tokenDelay: 20 * time.Millisecond,
		logger:     logger.With().Str("component", "stub").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e.GET("/api/collections", s.HandleCollections)
	e.GET("/ws/query/:client_id", s.HandleQuery)
	return s
}

// Handler exposes the underlying handler for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// HandleCollections serves the collection listing.
func (s *Server) HandleCollections(c echo.Context) error {
	return c.JSON(http.StatusOK, s.collections)
}

// HandleQuery upgrades to a websocket and answers every received query
// payload with a canned token/source stream.
func (s *Server) HandleQuery(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade websocket")
		return err
	}
	defer ws.Close()

	clientID := c.Param("client_id")
	logger := s.logger.With().Str("client_id", clientID).Logger()
	logger.Info().Msg("Query channel opened")

	for {
		var payload protocol.QueryPayload
		if err := ws.ReadJSON(&payload); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Query channel error")
			}
			return nil
		}

		if err := s.streamAnswer(ws, payload); err != nil {
			logger.Warn().Err(err).Msg("Failed to stream answer")
			return nil
		}
	}
}

// streamAnswer writes the canned answer as individual token frames followed
// by source frames, mirroring the production backend's event order.
func (s *Server) streamAnswer(ws *websocket.Conn, payload protocol.QueryPayload) error {
	answer, sources := s.answerFor(payload)

	for _, token := range strings.SplitAfter(answer, " ") {
		if err := s.writeFrame(ws, protocol.TokenFrame{Token: token}); err != nil {
			return err
		}
		if s.tokenDelay > 0 {
			time.Sleep(s.tokenDelay)
		}
	}
	for _, source := range sources {
		if err := s.writeFrame(ws, protocol.SourceFrame{Source: source}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) writeFrame(ws *websocket.Conn, frame protocol.Frame) error {
	data, err := protocol.EncodeFrame(frame)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

// answerFor builds a deterministic canned answer for a query payload.
func (s *Server) answerFor(payload protocol.QueryPayload) (string, []string) {
	scope := "the whole documentation set"
	if payload.Collection != selection.NoCollection {
		scope = fmt.Sprintf("**%s** version **%s**", payload.ProductFullName, payload.Version)
	}

	answer := fmt.Sprintf(
		"You asked: *%s*\n\nI looked through %s. Here is an example:\n\n```yaml\nquery: %s\ncollection: %s\n```\n",
		payload.Query, scope, payload.Query, payload.Collection)

	sources := []string{
		"https://docs.example.com/" + payload.Collection,
		"Product documentation, chapter 1",
	}
	return answer, sources
}
