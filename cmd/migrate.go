/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/jobfinder/apiserver/config"
	"github.com/jobfinder/apiserver/internal/db"
	"github.com/jobfinder/apiserver/internal/store/mongostore"
	"github.com/spf13/cobra"
)

var migrateDownSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	Long: `Apply all pending migrations. With DB_DRIVER=mongo this creates the
collection indexes instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		switch cfg.Database.Driver {
		case "postgres":
			return db.MigrateUp(db.PostgresURL(cfg.Database))
		case "mongo":
			return ensureMongoIndexes(cmd.Context(), cfg)
		default:
			return fmt.Errorf("nothing to migrate for DB_DRIVER %q", cfg.Database.Driver)
		}
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("rollback is only supported for postgres, got DB_DRIVER %q", cfg.Database.Driver)
		}
		return db.MigrateDown(db.PostgresURL(cfg.Database), migrateDownSteps)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back, 0 for all")
}

func ensureMongoIndexes(ctx context.Context, cfg config.Config) error {
	client, database, err := db.ConnectMongo(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.WithoutCancel(ctx))
	}()

	if err := mongostore.New(database).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
