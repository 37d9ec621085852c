package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fjod/go_cart/bakery-pos/internal/export"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the sales history to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}

			a, err := openApp(opts.configDir, opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}

			n, err := export.WriteWorkbook(f, service.NewCheckoutService(a.ledger).History(cmd.Context()))
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d sale lines written to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "ventes.xlsx", "output workbook path")
	return cmd
}
