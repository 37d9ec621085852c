package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir string
	env       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pos",
		Short: "Bakery till: catalog, cart, checkout and sales history",
		Long: `pos runs the bakery till. The serve command exposes the cart and
checkout over HTTP; the other commands read the sales ledger.

Configuration is read from <config>/base.yaml, then <config>/<env>.yaml,
then POS_ environment variables (POS_LEDGER__PATH=... sets ledger.path).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config", "configs", "directory holding base.yaml")
	cmd.PersistentFlags().StringVar(&opts.env, "env", "", "environment overlay, e.g. dev loads dev.yaml")

	cmd.AddCommand(
		newServeCmd(opts),
		newHistoryCmd(opts),
		newExportCmd(opts),
		newCatalogCmd(opts),
	)
	return cmd
}
