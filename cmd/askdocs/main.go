// Command askdocs is a terminal client for the streaming documentation
// assistant.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tkoeck/askdocs/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "askdocs",
	Short: "Chat with the documentation assistant",
	Long:  "askdocs maintains a streaming chat session with the documentation assistant backend.",
}

func main() {
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newStubCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger from config, writing human-readable
// output to stderr so it never interleaves with the chat stream on stdout.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
