package session_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tkoeck/askdocs/internal/accumulator"
	"github.com/tkoeck/askdocs/internal/channel"
	"github.com/tkoeck/askdocs/internal/collections"
	"github.com/tkoeck/askdocs/internal/config"
	"github.com/tkoeck/askdocs/internal/selection"
	"github.com/tkoeck/askdocs/internal/session"
	"github.com/tkoeck/askdocs/internal/stub"
	"github.com/tkoeck/askdocs/internal/transcript"
)

// TestSessionAgainstStubBackend drives a full session over a real websocket
// connection to the stub backend: start, product selection, a streamed query
// and the archive on the follow-up query.
func TestSessionAgainstStubBackend(t *testing.T) {
	logger := zerolog.Nop()
	srv := httptest.NewServer(stub.NewServer(logger, stub.WithTokenDelay(0)).Handler())
	defer srv.Close()

	cfg := config.Load()
	cfg.BackendAPIURL = srv.URL + "/api"

	acc := accumulator.New(logger)
	sel := selection.NewContext()
	tr := transcript.New()
	ch := channel.New(cfg, logger)
	ctrl := session.New(ch, acc, sel, tr, logger)
	defer ctrl.Close()

	lister := collections.NewClient(cfg.BackendAPIURL)
	require.NoError(t, ctrl.Start(context.Background(), lister))
	require.True(t, ctrl.Connected())
	require.Len(t, tr.Entries(), 1)

	ctrl.SelectProduct("Foo")
	// Product switch archives the (empty) exchange and appends a notice.
	require.Len(t, tr.Entries(), 4)

	require.NoError(t, ctrl.Submit("how do I configure foo?"))
	require.Eventually(t, func() bool {
		return strings.Contains(acc.Text(), "how do I configure foo?") &&
			len(acc.Sources()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, []string{
		"https://docs.example.com/Foo_en_1_0",
		"Product documentation, chapter 1",
	}, acc.Sources())

	// The next submit archives the streamed answer before sending.
	require.NoError(t, ctrl.Submit("and version 2?"))
	entries := tr.Entries()
	answer, ok := entries[len(entries)-3].(transcript.AnswerEntry)
	require.True(t, ok)
	require.Contains(t, answer.Text(), "how do I configure foo?")
	sources, ok := entries[len(entries)-2].(transcript.SourcesEntry)
	require.True(t, ok)
	require.Len(t, sources.Sources, 2)
}
