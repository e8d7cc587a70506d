package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/courierhq/fieldlink/internal/device"
)

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <device-id>",
		Short: "Scan for the given device and connect to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			fc, cfg, err := buildContext(ctx)
			if err != nil {
				return err
			}
			defer fc.Close()

			if !fc.RequestPermissions(ctx) {
				return fmt.Errorf("bluetooth permissions not granted")
			}

			if err := fc.ScanForDevices(ctx); err != nil {
				return err
			}

			target, err := waitForDevice(cmd, fc.Devices, id, cfg.Scan.Window())
			if err != nil {
				return err
			}

			if err := fc.ConnectToDevice(ctx, target); err != nil {
				return err
			}

			cmd.Printf("connected to %s (%s, %s)\n", target.Name, target.ID, target.Role)
			return nil
		},
	}
	return cmd
}

// waitForDevice polls the aggregate list until the wanted id shows up or the
// scan window lapses.
func waitForDevice(cmd *cobra.Command, devices func() []device.Device, id string, window time.Duration) (device.Device, error) {
	deadline := time.After(window + 250*time.Millisecond)
	for {
		for _, d := range devices() {
			if d.ID == id {
				return d, nil
			}
		}
		select {
		case <-cmd.Context().Done():
			return device.Device{}, cmd.Context().Err()
		case <-deadline:
			return device.Device{}, fmt.Errorf("device %s not found during scan", id)
		case <-time.After(200 * time.Millisecond):
		}
	}
}
