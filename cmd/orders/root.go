package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "orders",
		Short: "Orders service for the acme-shop commerce platform",
		Long: `Orders owns admin order management, storefront checkout and the
pricing rules that derive subtotal, GST, delivery and total for both.

Use 'orders serve' to run the HTTP API and 'orders totals' to price a set
of lines locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				if err := os.Setenv("ORDERS_CONFIG", path); err != nil {
					return err
				}
			}

			a.cfg = config.Load()
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				a.cfg.Logging.Level = "debug"
			}
			logging.Configure(a.cfg.Logging)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: $ORDERS_CONFIG)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newTotalsCmd(a))

	return rootCmd
}
