// Migrate applies or rolls back the embedded schema migrations against DATABASE_URL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recruit-intake/internal/config"
	"recruit-intake/internal/db/migrate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Run recruit-intake database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		directionCmd("up", "Apply all pending migrations", migrate.Up),
		directionCmd("down", "Roll back all migrations", migrate.Down),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := databaseURL()
				if err != nil {
					return err
				}
				v, dirty, err := migrate.Version(dsn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
				return nil
			},
		},
	)
	return root
}

func directionCmd(use, short string, d migrate.Direction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			if err := migrate.Run(dsn, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: ok\n", use)
			return nil
		},
	}
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", migrate.ErrMissingDSN
	}
	return cfg.DatabaseURL, nil
}
