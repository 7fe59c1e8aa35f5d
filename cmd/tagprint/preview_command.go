package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tagprint/internal/scene"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:         "preview [file|-]",
		Short:       "Render a ZPL label as SVG, PNG or a JSON scene",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			payload, err := readLabel(cmd, source)
			if err != nil {
				return err
			}
			f, err := scene.ParseFormat(format)
			if err != nil {
				return err
			}

			result := scene.Preview(string(payload), f)
			if result.Fallback {
				fmt.Fprintf(cmd.ErrOrStderr(), "Preview unavailable (%v); raw label follows\n", result.Err)
				fmt.Fprintln(cmd.OutOrStdout(), result.Raw)
				return nil
			}

			if strings.TrimSpace(output) == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(result.Body)
				return err
			}
			if err := os.WriteFile(output, result.Body, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s preview to %s\n", f, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(scene.FormatSVG), "Output format: svg, png or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the preview to this file instead of stdout")
	return cmd
}
