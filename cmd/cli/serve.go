package cli

import (
	"vehicle-service-scheduling/cmd/bootstrap"
	"vehicle-service-scheduling/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			if migrateUp {
				if err := database.MigrateUp(database.PostgresURL(cfg.DB)); err != nil {
					return err
				}
			}

			app, err := bootstrap.New(cfg)
			if err != nil {
				return err
			}

			app.Run()
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply pending migrations before starting")
	return cmd
}
