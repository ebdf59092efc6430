package cli

import (
	"fmt"
	"os"

	"vehicle-service-scheduling/cmd/bootstrap"
	"vehicle-service-scheduling/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Vehicle service appointment scheduling engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedSlotsCmd())
	root.AddCommand(newTokenCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up the shared logger
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := bootstrap.SetupLogger(cfg)
	log.Info("Configuration loaded successfully")
	return cfg, log, nil
}
