package cli

import (
	"fmt"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/pkg/jwt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			roleID := entity.RoleIDByName(role)
			if roleID == 0 {
				return fmt.Errorf("unknown --role %q, use admin, staff or customer", role)
			}

			token, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(id, roleID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token")
	cmd.Flags().StringVar(&role, "role", entity.RoleCustomer, "role: admin, staff or customer")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
