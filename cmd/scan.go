package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/courierhq/fieldlink/internal/device"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Discover nearby devices on both transports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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

			// The scan is fire-and-forget; wait out the window plus a beat
			// for stragglers already in flight.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Scan.Window() + 250*time.Millisecond):
			}

			devices := fc.Devices()
			if len(devices) == 0 {
				cmd.Println("no devices found")
				return nil
			}

			for _, d := range devices {
				line := fmt.Sprintf("%-20s %-24s %-8s %s", d.ID, d.Name, d.Transport, d.Role)
				if d.Transport == device.TransportBLE && d.RSSI != 0 {
					line += fmt.Sprintf("  (rssi %d)", d.RSSI)
				}
				cmd.Println(line)
			}
			return nil
		},
	}
}
