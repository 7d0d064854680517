package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/ride-rota/pkg/core/services"
)

// AddUserCmd creates the addUser command
func AddUserCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addUser <username>",
		Short: "Add or update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			familiar, _ := cmd.Flags().GetString("familiar")
			email, _ := cmd.Flags().GetString("email")

			user, err := services.AddUser(app.Ctx, app.Database, app.Logger, services.UserInput{
				Username: args[0],
				Role:     role,
				Familiar: familiar,
				Email:    email,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Saved %s (%s, %s)\n\n", user.Username, user.Role, user.Familiar)
			return nil
		},
	}

	cmd.Flags().String("role", "user", "Account role (user or admin)")
	cmd.Flags().String("familiar", "unknown", "Local-area familiarity (familiar, unfamiliar or unknown)")
	cmd.Flags().String("email", "", "Email address for notifications")

	return cmd
}

// DeleteUserCmd creates the deleteUser command
func DeleteUserCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteUser <username>",
		Short: "Delete a user and their pending applications (confirmation history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := services.DeleteUser(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Deleted %s (%d applications removed)\n\n", args[0], removed)
			return nil
		},
	}
}

// SetFamiliarCmd creates the setFamiliar command
func SetFamiliarCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setFamiliar <username> <familiar|unfamiliar|unknown>",
		Short: "Set a user's local-area familiarity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.SetFamiliar(app.Ctx, app.Database, app.Logger, args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s is now %s\n\n", args[0], args[1])
			return nil
		},
	}
}

// ListUsersCmd creates the listUsers command
func ListUsersCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listUsers",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			users, err := services.ListUsers(app.Ctx, app.Database, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, users)
			}

			fmt.Fprintf(out, "\nFound %d users:\n\n", len(users))
			for _, u := range users {
				fmt.Fprintf(out, "- %s (%s) - %s - %s\n", u.Username, u.Role, u.Familiar, u.Email)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}
