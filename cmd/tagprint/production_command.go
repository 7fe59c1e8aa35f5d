package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tagprint/internal/api"
	"tagprint/internal/catalog"
	"tagprint/internal/delivery"
)

func newProductionCommand(ctx *commandContext) *cobra.Command {
	var printAll bool
	var serial string

	cmd := &cobra.Command{
		Use:   "production <number>",
		Short: "Show a production's units and optionally print their tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number := strings.TrimSpace(args[0])
			if ctx.remote() {
				return productionRemote(cmd, ctx, number, serial, printAll)
			}

			d, err := ctx.localServices()
			if err != nil {
				return err
			}
			production, err := d.Catalog().Find(number)
			if err != nil {
				return err
			}

			units := production.SerialNumbers
			if serial != "" {
				unit, err := production.Unit(serial)
				if err != nil {
					return err
				}
				units = []catalog.Unit{unit}
			} else if !printAll {
				fmt.Fprintln(cmd.OutOrStdout(), renderProduction(api.FromProduction(production)))
				return nil
			}

			var failed int
			for _, unit := range units {
				fmt.Fprintln(cmd.ErrOrStderr(), delivery.PendingMessage(unit.SerialNumber))
				job := d.Job([]byte(unit.TagCode), unit.SerialNumber, "", 0)
				outcome := d.Strategy().Deliver(cmd.Context(), job)
				if err := reportOutcome(cmd, api.NewDeliverResponse(outcome), outcome.Path); err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d labels failed", failed, len(units))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printAll, "print", false, "Print a tag for every unit in the production")
	cmd.Flags().StringVar(&serial, "unit", "", "Print the tag for this serial number only")
	return cmd
}

func productionRemote(cmd *cobra.Command, ctx *commandContext, number, serial string, printAll bool) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	production, err := client.Production(cmd.Context(), number)
	if err != nil {
		return err
	}

	var serials []string
	switch {
	case serial != "":
		serials = []string{serial}
	case printAll:
		for _, u := range production.Units {
			serials = append(serials, u.SerialNumber)
		}
	default:
		fmt.Fprintln(cmd.OutOrStdout(), renderProduction(production))
		return nil
	}

	var errs []error
	for _, s := range serials {
		resp, err := client.PrintUnit(cmd.Context(), production.ProductionNumber, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
			continue
		}
		if err := reportOutcome(cmd, resp, resp.Artifact); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

func renderProduction(p api.Production) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", p.ProductionNumber, p.Description)
	rows := make([][]string, 0, len(p.Units))
	for _, u := range p.Units {
		rows = append(rows, []string{u.SerialNumber, fmt.Sprintf("%d", len(u.TagCode))})
	}
	b.WriteString(renderTable([]string{"Serial", "Tag bytes"}, rows, 1))
	return b.String()
}
