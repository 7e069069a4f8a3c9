package main

import (
	"github.com/mikepea/recipes/pkg/recipes/server"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the recipes API server",
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srv, err := server.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return srv.Start(cmd.Context())
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
