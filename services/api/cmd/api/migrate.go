package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khoa21023/salebot-telegram/services/api/internal/config"
	"github.com/khoa21023/salebot-telegram/services/api/migrations"
)

func migrateCmd() *cobra.Command {
	var (
		envFile string
		status  bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return errors.New("migrate needs STORE_DRIVER=postgres")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), startupTimeout)
			defer cancel()
			pool, err := connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			out := cmd.OutOrStdout()
			if status {
				pending, err := migrations.Pending(ctx, pool)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "schema is up to date")
				}
				for _, name := range pending {
					fmt.Fprintf(out, "pending  %s\n", name)
				}
				return nil
			}

			applied, err := migrations.Apply(ctx, pool)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied  %s\n", name)
			}
			fmt.Fprintf(out, "%d migration(s) applied\n", len(applied))
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file to load")
	cmd.Flags().BoolVar(&status, "status", false, "list pending migrations without applying them")
	return cmd
}
