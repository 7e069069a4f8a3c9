package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikepea/recipes/pkg/recipes/config"
	"github.com/mikepea/recipes/pkg/recipes/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// rootCmd runs the server when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "recipes-server",
	Short: "Recipes REST API",
	Long: `Recipes REST API server and management commands. Usage:

	recipes-server [server|migrate|createsuperuser|wait-for-db]
`,
	SilenceUsage: true,
	RunE:         runServer,
}

// loadConfig reads and validates configuration and sets up logging
func loadConfig() (config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := logging.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// @title Recipes API
// @version 1.0
// @description Recipes, tags and ingredients per user, with token authentication and image upload.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey TokenAuth
// @in header
// @name Authorization
// @description Token issued by /api/users/token. Format: "Token {token}" or "Bearer {token}"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}
