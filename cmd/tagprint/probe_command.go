package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagprint/internal/api"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var host string
	var port int
	var save bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the network printer accepts connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if ctx.remote() {
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				if save {
					if _, err := client.SetPrinter(cmd.Context(), api.PrinterConfigRequest{IP: host, Port: port}); err != nil {
						return fmt.Errorf("update printer: %w", err)
					}
				}
				status, err := client.PrinterStatus(cmd.Context())
				if err != nil {
					return err
				}
				if status.Status != "online" {
					fmt.Fprintln(out, renderStatusLine("Printer", statusError, status.Printer+": "+status.Error, colorize))
					return fmt.Errorf("printer %s offline", status.Printer)
				}
				fmt.Fprintln(out, renderStatusLine("Printer", statusOK, status.Printer+" online", colorize))
				return nil
			}

			d, err := ctx.localServices()
			if err != nil {
				return err
			}
			target := d.Settings().Resolve(host, port)
			if err := target.Validate(); err != nil {
				return err
			}
			if err := d.Client().Probe(cmd.Context(), target, d.Settings().Timeout()); err != nil {
				fmt.Fprintln(out, renderStatusLine("Printer", statusError, err.Error(), colorize))
				return fmt.Errorf("printer %s offline", target)
			}
			fmt.Fprintln(out, renderStatusLine("Printer", statusOK, target.String()+" online", colorize))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Printer host (defaults to the configured printer)")
	cmd.Flags().IntVar(&port, "port", 0, "Printer port (defaults to the configured printer)")
	cmd.Flags().BoolVar(&save, "save", false, "Store --host/--port as the daemon's printer before probing (requires --api)")
	return cmd
}
