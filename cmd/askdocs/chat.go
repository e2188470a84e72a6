package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/tkoeck/askdocs/internal/accumulator"
	"github.com/tkoeck/askdocs/internal/channel"
	"github.com/tkoeck/askdocs/internal/collections"
	"github.com/tkoeck/askdocs/internal/config"
	"github.com/tkoeck/askdocs/internal/selection"
	"github.com/tkoeck/askdocs/internal/session"
	"github.com/tkoeck/askdocs/internal/transcript"
)

func newChatCommand() *cobra.Command {
	var backendURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if backendURL != "" {
				cfg.BackendAPIURL = backendURL
			}
			return runChat(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend", "", "Backend API base URL (overrides BACKEND_API_URL)")
	return cmd
}

// renderer wraps glamour so a failed initialization degrades to plain text
// instead of killing the session.
type renderer struct {
	term *glamour.TermRenderer
}

func newRenderer() *renderer {
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		term = nil
	}
	return &renderer{term: term}
}

func (r *renderer) render(markdown string) string {
	if r.term == nil {
		return markdown
	}
	out, err := r.term.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func runChat(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)

	ch := channel.New(cfg, logger)
	acc := accumulator.New(logger)
	sel := selection.NewContext()
	tr := transcript.New()
	ctrl := session.New(ch, acc, sel, tr, logger)
	md := newRenderer()

	// Live streaming view: print whatever the accumulator gained since the
	// last change notification. Runs on the frame pump, so keep it dumb.
	var printed int
	var printedSources int
	acc.OnChange(func() {
		text := acc.Text()
		if len(text) < printed {
			printed = 0
			printedSources = 0
			fmt.Println()
		}
		if len(text) > printed {
			fmt.Print(text[printed:])
			printed = len(text)
		}
		sources := acc.Sources()
		for ; printedSources < len(sources); printedSources++ {
			if printedSources == 0 {
				fmt.Println("\n\nReferences:")
			}
			fmt.Println("  " + sources[printedSources])
		}
	})

	if err := ctrl.Start(ctx, collections.NewClient(cfg.BackendAPIURL)); err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Print(md.render(session.GreetingNotice))
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctrl, sel, tr, md, line); quit {
				return nil
			}
			continue
		}

		if err := ctrl.Submit(line); err != nil {
			if errors.Is(err, channel.ErrNotConnected) {
				fmt.Println("Not connected. Restart askdocs to reconnect.")
				continue
			}
			logger.Error().Err(err).Msg("Submit failed")
		}
	}
}

// runCommand handles slash commands. Returns true when the session should
// end.
func runCommand(ctrl *session.Controller, sel *selection.Context, tr *transcript.Transcript, md *renderer, line string) bool {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch fields[0] {
	case "/quit":
		fmt.Println("Bye!")
		return true
	case "/new":
		ctrl.ResetConversation()
		printLastNotice(tr, md)
	case "/products":
		for _, col := range sel.Collections() {
			fmt.Printf("  %-12s %s (versions: %s, language: %s)\n",
				col.Product, col.ProductFullName, strings.Join(col.Version, ", "), col.Language)
		}
	case "/product":
		ctrl.SelectProduct(arg)
		printLastNotice(tr, md)
	case "/version":
		ctrl.SelectVersion(arg)
		printLastNotice(tr, md)
	case "/language":
		ctrl.SelectLanguage(arg)
		printLastNotice(tr, md)
	case "/history":
		printHistory(tr, md)
	default:
		printHelp()
	}
	return false
}

// printLastNotice renders the most recent system notice, if the action
// produced one.
func printLastNotice(tr *transcript.Transcript, md *renderer) {
	entries := tr.Entries()
	if len(entries) == 0 {
		return
	}
	if notice, ok := entries[len(entries)-1].(transcript.NoticeEntry); ok {
		fmt.Print(md.render(notice.Text))
	}
}

// printHistory renders the archived transcript. Empty entries are filtered
// here, at the presentation boundary, not in the transcript itself.
func printHistory(tr *transcript.Transcript, md *renderer) {
	for _, entry := range tr.Entries() {
		if entry.Empty() {
			continue
		}
		switch e := entry.(type) {
		case transcript.QueryEntry:
			fmt.Printf("you: %s\n", e.Text)
		case transcript.AnswerEntry:
			fmt.Print(md.render(e.Text()))
		case transcript.SourcesEntry:
			fmt.Println("References:")
			for _, source := range e.Sources {
				fmt.Println("  " + source)
			}
		case transcript.NoticeEntry:
			fmt.Print(md.render(e.Text))
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  /products          list available products
  /product <id>      select a product
  /version <v>       select a version
  /language <l>      select a language
  /history           show the archived conversation
  /new               start a new chat
  /quit              exit`)
}
