package cli

import (
	"errors"

	"vehicle-service-scheduling/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var auto bool
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			if !auto {
				return database.MigrateUp(database.PostgresURL(cfg.DB))
			}

			db, err := database.NewPostgresConnection(cfg.DB)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			log.Warn("Using GORM auto-migration, partial indexes from the SQL migrations are not created")
			return database.AutoMigrate(db)
		},
	}
	up.Flags().BoolVar(&auto, "auto", false, "use GORM auto-migration instead of the SQL migrations")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.New("--steps must be positive")
			}

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return database.MigrateDown(database.PostgresURL(cfg.DB), steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
