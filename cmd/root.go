// Package cmd is the fieldlink CLI: field technicians use it to scan for
// hardware, pair the depot printer and verify the paper path without the
// mobile app.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/courierhq/fieldlink/internal/config"
	"github.com/courierhq/fieldlink/internal/fieldctx"
	"github.com/courierhq/fieldlink/internal/logging"
)

var (
	cfgFile   string //nolint:gochecknoglobals // cobra command flag
	logLevel  string //nolint:gochecknoglobals // cobra command flag
	logFormat string //nolint:gochecknoglobals // cobra command flag
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fieldlink",
		Short:         "Bluetooth device and thermal-print core for courier field operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			base := logging.New("fieldlink", logLevel, logFormat)
			cmd.SetContext(base.WithContext(cmd.Context()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: json, console")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newDisconnectCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPrintCmd())
	rootCmd.AddCommand(newTestPrintCmd())

	return rootCmd
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildContext loads the config and wires the device core for one command
// invocation.
func buildContext(ctx context.Context) (*fieldctx.Context, config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, config.Config{}, err
	}

	log := zerolog.Ctx(ctx)
	fc, err := fieldctx.New(ctx, cfg, *log)
	if err != nil {
		return nil, config.Config{}, err
	}
	return fc, cfg, nil
}
