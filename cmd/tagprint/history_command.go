package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tagprint/internal/api"
	"tagprint/internal/delivery"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var unitID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent label deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []api.Outcome
			if ctx.remote() {
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				resp, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				items = resp.Items
			} else {
				d, err := ctx.localServices()
				if err != nil {
					return err
				}
				var outcomes []delivery.Outcome
				if unitID != "" {
					outcomes, err = d.Store().ForUnit(cmd.Context(), unitID)
				} else {
					outcomes, err = d.Store().Recent(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				items = api.FromOutcomes(outcomes)
			}

			if jsonOut {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No deliveries recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(items))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of deliveries to show")
	cmd.Flags().StringVarP(&unitID, "unit", "u", "", "Only show deliveries for this serial number")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete deliveries older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			d, err := ctx.localServices()
			if err != nil {
				return err
			}
			removed, err := d.Store().Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d deliveries\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}

func renderHistory(items []api.Outcome) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		where := item.Printer
		if item.Artifact != "" {
			where = item.Artifact
		}
		unit := item.UnitID
		if unit == "" {
			unit = "-"
		}
		rows = append(rows, []string{
			item.StartedAt,
			unit,
			item.Kind,
			item.Transport,
			where,
			strconv.FormatInt(item.DurationMS, 10) + "ms",
		})
	}
	return renderTable([]string{"Started", "Unit", "Result", "Transport", "Target", "Duration"}, rows, 5)
}
