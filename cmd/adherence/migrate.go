package main

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/adherence-api/internal/migrate"
)

func migrateCmd(load loader) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "./migrations", "path to migrations directory")

	open := func(cmd *cobra.Command) (*migrate.Migrator, func(), error) {
		cfg, _ := load()
		pool, err := pgxpool.New(cmd.Context(), cfg.Database.URL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return migrate.NewMigrator(pool, os.DirFS(dir)), pool.Close, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			applied, err := m.Up(cmd.Context())
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.AppliedAt != nil {
					state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}
