package main

import (
	"github.com/spf13/cobra"

	"github.com/tkoeck/askdocs/internal/config"
	"github.com/tkoeck/askdocs/internal/stub"
)

func newStubCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a stub documentation backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := newLogger(cfg)
			logger.Info().Str("addr", addr).Msg("Starting stub backend")
			return stub.NewServer(logger).Start(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8091", "Listen address")
	return cmd
}
