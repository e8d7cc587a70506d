package cmd

import (
	"github.com/spf13/cobra"
)

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the current device and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fc, _, err := buildContext(ctx)
			if err != nil {
				return err
			}
			defer fc.Close()

			if err := fc.DisconnectFromDevice(ctx); err != nil {
				return err
			}
			cmd.Println("disconnected")
			return nil
		},
	}
}
