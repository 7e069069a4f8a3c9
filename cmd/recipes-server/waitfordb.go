package main

import (
	"github.com/mikepea/recipes/pkg/recipes/database"
	"github.com/spf13/cobra"
)

// waitForDBCmd blocks until the database accepts connections
var waitForDBCmd = &cobra.Command{
	Use:   "wait-for-db",
	Short: "Wait until the database is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := connect(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, cfg.Database.WaitTimeout)
		if err != nil {
			return err
		}
		database.Close(db)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitForDBCmd)
}
