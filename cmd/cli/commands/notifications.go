package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/ride-rota/pkg/core/services"
)

// NotificationsCmd creates the notifications command
func NotificationsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications <username>",
		Short: "List a user's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markRead, _ := cmd.Flags().GetString("mark-read")
			asJSON, _ := cmd.Flags().GetBool("json")

			if markRead != "" {
				if err := services.MarkNotificationRead(app.Ctx, app.Database, app.Logger, app.Hooks, markRead); err != nil {
					return err
				}
			}

			notifications, err := services.ListNotifications(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, notifications)
			}

			if len(notifications) == 0 {
				fmt.Fprintf(out, "No notifications for %s.\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "\n%d notifications for %s:\n\n", len(notifications), args[0])
			for _, n := range notifications {
				marker := "*"
				if n.ReadAt != nil {
					marker = " "
				}
				fmt.Fprintf(out, "%s %s  %-22s %s\n    id: %s\n", marker, n.CreatedAt.Format("2006-01-02 15:04"), n.Kind, n.Message, n.ID)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().String("mark-read", "", "Mark the notification with this id as read first")
	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}
