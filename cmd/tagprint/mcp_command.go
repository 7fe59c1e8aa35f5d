package main

import (
	"github.com/spf13/cobra"

	"tagprint/internal/logging"
	"tagprint/internal/mcpserver"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve label tools over the Model Context Protocol on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			d, err := ctx.localServices()
			if err != nil {
				return err
			}
			logger, err := cliLogger(cfg)
			if err != nil {
				logger = logging.NewNop()
			}
			srv := mcpserver.New(mcpserver.Backend{
				Settings: d.Settings(),
				Client:   d.Client(),
				Strategy: d.Strategy(),
				Catalog:  d.Catalog(),
			}, logger)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
