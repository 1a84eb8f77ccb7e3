package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the orders schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			db, err := initDatabase(a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := repository.Migrate(ctx, db); err != nil {
				return err
			}

			logging.Info("Schema migrated", logging.Fields{"database": a.cfg.Database.Name})
			return nil
		},
	}

	cmd.Flags().Duration("timeout", time.Minute, "migration timeout")

	return cmd
}
