package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fjod/go_cart/bakery-pos/internal/catalog"
	"github.com/fjod/go_cart/bakery-pos/internal/config"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the products and unit prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// the catalog does not need the ledger
			cfg, err := config.Load(opts.configDir, opts.env)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "Produit\tPrix")
			for _, p := range cat.Products() {
				fmt.Fprintf(tw, "%s\t%d\n", p.Name, p.UnitPrice)
			}
			return tw.Flush()
		},
	}
}
