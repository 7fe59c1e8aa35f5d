package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tagprint/internal/api"
	"tagprint/internal/delivery"
)

func newPrintCommand(ctx *commandContext) *cobra.Command {
	var unitID string
	var host string
	var port int
	var direct bool

	cmd := &cobra.Command{
		Use:   "print [file|-]",
		Short: "Print a ZPL label",
		Long: "Print a ZPL label read from a file or stdin. By default the label goes " +
			"through the USB printer, the network printer and finally a fallback file. " +
			"--direct sends it to the network printer only.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			payload, err := readLabel(cmd, source)
			if err != nil {
				return err
			}
			req := api.PrintRequest{ZPL: string(payload), UnitID: unitID, PrinterIP: host, PrinterPort: port}
			if ctx.remote() {
				return printRemote(cmd, ctx, req, direct)
			}
			return printLocal(cmd, ctx, req, direct)
		},
	}

	cmd.Flags().StringVarP(&unitID, "unit", "u", "", "Serial number the label belongs to")
	cmd.Flags().StringVar(&host, "host", "", "Printer host (defaults to the configured printer)")
	cmd.Flags().IntVar(&port, "port", 0, "Printer port (defaults to the configured printer)")
	cmd.Flags().BoolVar(&direct, "direct", false, "Send to the network printer only")
	return cmd
}

func readLabel(cmd *cobra.Command, source string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read label: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("ZPL content is required")
	}
	return data, nil
}

func printLocal(cmd *cobra.Command, ctx *commandContext, req api.PrintRequest, direct bool) error {
	d, err := ctx.localServices()
	if err != nil {
		return err
	}
	job := d.Job([]byte(req.ZPL), req.UnitID, req.PrinterIP, req.PrinterPort)
	fmt.Fprintln(cmd.ErrOrStderr(), delivery.PendingMessage(req.UnitID))

	var outcome delivery.Outcome
	if direct {
		outcome, err = d.Strategy().Direct(cmd.Context(), job, delivery.TransportSocket)
		if err != nil && outcome.JobID == "" {
			return err
		}
	} else {
		outcome = d.Strategy().Deliver(cmd.Context(), job)
	}
	return reportOutcome(cmd, api.NewDeliverResponse(outcome), outcome.Path)
}

func printRemote(cmd *cobra.Command, ctx *commandContext, req api.PrintRequest, direct bool) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	if direct {
		resp, err := client.Print(cmd.Context(), req)
		if err != nil {
			if resp.Error != "" {
				return errors.New(resp.Error)
			}
			return err
		}
		colorize := shouldColorize(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Printer", statusOK, resp.Message+" ("+resp.Printer+")", colorize))
		return nil
	}
	resp, err := client.Deliver(cmd.Context(), req)
	if err != nil {
		return err
	}
	return reportOutcome(cmd, resp, resp.Artifact)
}

func reportOutcome(cmd *cobra.Command, resp api.DeliverResponse, artifact string) error {
	kind := delivery.Kind(resp.Outcome.Kind)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderStatusLine("Delivery", outcomeStatus(kind), resp.Status, shouldColorize(out)))
	if artifact != "" {
		fmt.Fprintf(out, "Saved to %s\n", artifact)
	}
	if kind != delivery.KindDelivered && kind != delivery.KindFellBack {
		return fmt.Errorf("delivery %s", kind)
	}
	return nil
}
