package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagprint/internal/preflight"
	"tagprint/internal/printer"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipPrinter bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check printers, directories and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var prober preflight.Prober
			if !skipPrinter {
				prober = printer.NewClient()
			}

			results := preflight.RunAll(cmd.Context(), cfg, prober)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipPrinter, "skip-printer", false, "Do not probe the network printer")
	return cmd
}
