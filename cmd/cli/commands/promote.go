package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handsofstluke/pantry/pkg/db"
)

// PromoteCmd creates the promote command
func PromoteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant the ADMIN role to a registered user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]

			user, err := app.Database.GetUserByEmail(app.Ctx, email)
			if err != nil {
				return fmt.Errorf("failed to look up user %q: %w", email, err)
			}
			if user.Role == db.RoleAdmin {
				fmt.Printf("%s is already an admin.\n", email)
				return nil
			}

			if err := app.Database.SetUserRole(app.Ctx, user.ID, db.RoleAdmin); err != nil {
				return fmt.Errorf("failed to update role: %w", err)
			}

			fmt.Printf("✓ %s is now an admin\n", email)
			return nil
		},
	}
}
