package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection state and printer status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fc, _, err := buildContext(ctx)
			if err != nil {
				return err
			}
			defer fc.Close()

			cmd.Printf("state: %s\n", fc.ConnectionState())

			dev, ok := fc.ConnectedDevice()
			if !ok {
				return nil
			}
			cmd.Printf("device: %s (%s)\n", dev.Name, dev.ID)
			cmd.Printf("transport: %s\n", dev.Transport)
			cmd.Printf("role: %s\n", dev.Role)

			if d := fc.Driver(); d != nil {
				cmd.Printf("driver: structured\n")
				if level := d.BatteryLevel(); level > 0 {
					cmd.Printf("battery: %d%%\n", level)
				}
				if v := d.FirmwareVersion(); v != "" {
					cmd.Printf("firmware: %s\n", v)
				}
			} else {
				cmd.Printf("driver: raw commands\n")
			}
			return nil
		},
	}
}
