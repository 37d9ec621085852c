package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded sales, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts.configDir, opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			sales, err := service.NewCheckoutService(a.ledger).RecentSales(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printSales(cmd.OutOrStdout(), sales)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of lines, 0 for all")
	return cmd
}

func printSales(out io.Writer, sales []domain.SaleLine) error {
	if len(sales) == 0 {
		_, err := fmt.Fprintln(out, "No sales recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tProduit\tQuantité\tPrix unitaire\tTotal")
	for _, s := range sales {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.Timestamp, s.ProductName, s.Quantity, s.UnitPrice, s.Total)
	}
	return tw.Flush()
}
