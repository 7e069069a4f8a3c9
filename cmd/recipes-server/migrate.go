package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mikepea/recipes/pkg/recipes/database"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := connect(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, cfg.Database.WaitTimeout)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		log.Info().Msg("Database migrations completed")
		return nil
	},
}

// connect waits up to timeout for the database to accept connections
func connect(ctx context.Context, driver, dsn string, timeout time.Duration) (*gorm.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return database.WaitForDB(ctx, driver, dsn, time.Second)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
