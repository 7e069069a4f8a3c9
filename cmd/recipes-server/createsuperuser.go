package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mikepea/recipes/pkg/recipes/database"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"github.com/mikepea/recipes/pkg/recipes/users"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	superuserEmail    string
	superuserPassword string
	superuserName     string
)

// createSuperuserCmd creates an administrator account if it doesn't exist
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a superuser account",
	Long: `Create a superuser account. The email and password default to
RECIPES_SUPERUSER_EMAIL and RECIPES_SUPERUSER_PASSWORD. Nothing is changed
if a user with the email already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		email := firstNonEmpty(superuserEmail, os.Getenv("RECIPES_SUPERUSER_EMAIL"))
		password := firstNonEmpty(superuserPassword, os.Getenv("RECIPES_SUPERUSER_PASSWORD"))
		if email == "" || password == "" {
			return errors.New("superuser email and password are required")
		}

		db, err := connect(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, cfg.Database.WaitTimeout)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}

		var existing models.User
		err = db.Where("email = ?", models.NormalizeEmail(email)).First(&existing).Error
		if err == nil {
			log.Info().Str("email", existing.Email).Msg("Superuser already exists")
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user, err := users.CreateUser(db, email, password, superuserName, true)
		if err != nil {
			return err
		}
		log.Info().Str("email", user.Email).Uint("user_id", user.ID).Msg("Created superuser")
		return nil
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "superuser email")
	createSuperuserCmd.Flags().StringVar(&superuserPassword, "password", "", "superuser password")
	createSuperuserCmd.Flags().StringVar(&superuserName, "name", "Admin", "superuser display name")
}
