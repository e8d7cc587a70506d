package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courierhq/fieldlink/internal/printing"
)

func newPrintCmd() *cobra.Command {
	var (
		packageCode string
		customer    string
		status      string
		asLabel     bool
	)

	cmd := &cobra.Command{
		Use:   "print [text...]",
		Short: "Print free-form text, or a receipt when field flags are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fc, _, err := buildContext(ctx)
			if err != nil {
				return err
			}
			defer fc.Close()

			if packageCode != "" || customer != "" || status != "" {
				return fc.PrintReceipt(ctx, printing.Receipt{
					PackageCode: packageCode,
					Customer:    customer,
					Status:      status,
				})
			}

			if len(args) == 0 {
				return fmt.Errorf("nothing to print: pass text or receipt flags")
			}
			if asLabel {
				return fc.PrintLabel(ctx, args)
			}
			return fc.PrintText(ctx, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&packageCode, "package", "", "Package code for a receipt")
	cmd.Flags().StringVar(&customer, "customer", "", "Customer name for a receipt")
	cmd.Flags().StringVar(&status, "status", "", "Scan status for a receipt")
	cmd.Flags().BoolVar(&asLabel, "label", false, "Render each argument as a label line and print as a raster bitmap")

	return cmd
}

func newTestPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-print",
		Short: "Print an alignment pattern to verify the paper path",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fc, _, err := buildContext(ctx)
			if err != nil {
				return err
			}
			defer fc.Close()

			return fc.TestPrint(ctx)
		},
	}
}
