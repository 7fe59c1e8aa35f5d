package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagprint/internal/api"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List USB label printers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.DevicesResponse
			if ctx.remote() {
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				if resp, err = client.Devices(cmd.Context()); err != nil {
					return err
				}
			} else {
				d, err := ctx.localServices()
				if err != nil {
					return err
				}
				devices, err := d.Devices()
				if err != nil {
					return err
				}
				cfg, _ := ctx.ensureConfig()
				resp = api.DevicesResponse{Enabled: cfg.Printer.DeviceLink, Devices: api.FromDevices(devices)}
			}

			out := cmd.OutOrStdout()
			if !resp.Enabled {
				fmt.Fprintln(out, renderStatusLine("USB", statusInfo, "device link disabled", shouldColorize(out)))
				return nil
			}
			if len(resp.Devices) == 0 {
				fmt.Fprintln(out, renderStatusLine("USB", statusWarn, "no printers attached", shouldColorize(out)))
				return nil
			}
			rows := make([][]string, 0, len(resp.Devices))
			for _, d := range resp.Devices {
				rows = append(rows, []string{d.Node, d.VendorID + ":" + d.ProductID, d.Manufacturer, d.Product, d.Serial})
			}
			fmt.Fprintln(out, renderTable([]string{"Node", "ID", "Manufacturer", "Product", "Serial"}, rows))
			return nil
		},
	}
}
