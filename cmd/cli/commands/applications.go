package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/ride-rota/pkg/core/services"
)

// ApplyCmd creates the apply command
func ApplyCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <event_id> <username> <driver|attendant>",
		Short: "Apply for a role on an event",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			created, err := services.Apply(app.Ctx, app.Database, app.Logger, eventID, args[1], args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "\n✓ %s applied as %s for event %d\n\n", args[1], args[2], eventID)
			} else {
				fmt.Fprintf(out, "\n%s has already applied as %s for event %d\n\n", args[1], args[2], eventID)
			}
			return nil
		},
	}
}

// WithdrawCmd creates the withdraw command
func WithdrawCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <event_id> <username> <driver|attendant>",
		Short: "Withdraw an application (confirmations are not affected)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			deleted, err := services.Withdraw(app.Ctx, app.Database, app.Logger, eventID, args[1], args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if deleted {
				fmt.Fprintf(out, "\n✓ Withdrew %s as %s from event %d\n\n", args[1], args[2], eventID)
			} else {
				fmt.Fprintf(out, "\nNo %s application from %s for event %d\n\n", args[2], args[1], eventID)
			}
			return nil
		},
	}
}

// ListApplicationsCmd creates the listApplications command
func ListApplicationsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listApplications <event_id>",
		Short: "List the applications for an event in the order they were made",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			applications, err := services.ListApplications(app.Ctx, app.Database, app.Logger, eventID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, applications)
			}

			fmt.Fprintf(out, "\n%d applications for event %d:\n\n", len(applications), eventID)
			for _, a := range applications {
				fmt.Fprintf(out, "  %-20s %-10s %s\n", a.Username, a.Role, a.CreatedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

// ApplicationsOnCmd creates the applicationsOn command
func ApplicationsOnCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "applicationsOn <date>",
		Short: "List the applications for every event on a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			grouped, err := services.ListApplicationsOnDate(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, grouped)
			}

			if len(grouped) == 0 {
				fmt.Fprintf(out, "No events on %s.\n", args[0])
				return nil
			}

			for _, g := range grouped {
				fmt.Fprintf(out, "\nEvent %d: %s (%d applications)\n", g.Event.ID, eventTitle(&g.Event), len(g.Applications))
				for _, a := range g.Applications {
					fmt.Fprintf(out, "  %-20s %-10s %s\n", a.Username, a.Role, a.CreatedAt.Format("2006-01-02 15:04"))
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}
