package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/ride-rota/pkg/core/services"
)

// RankCmd creates the rank command
func RankCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <event_id> <driver|attendant>",
		Short: "Rank the applicants for a role by fairness",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			ranked, err := services.RankApplicants(app.Ctx, app.Database, app.Logger, app.Hooks, eventID, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, ranked)
			}

			if len(ranked) == 0 {
				fmt.Fprintf(out, "No %s applicants for event %d.\n", args[1], eventID)
				return nil
			}

			fmt.Fprintf(out, "\n%s ranking for event %d:\n\n", args[1], eventID)
			fmt.Fprintf(out, "  %4s  %-20s %5s  %-16s %s\n", "Rank", "Username", "Times", "Last confirmed", "Applied")
			for _, r := range ranked {
				last := "never"
				if r.LastConfirmedAt != nil {
					last = r.LastConfirmedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "  %4d  %-20s %5d  %-16s %s\n", r.Rank, r.Username, r.Times, last, r.AppliedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

// AutoSelectCmd creates the autoSelect command
func AutoSelectCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoSelect <event_id>",
		Short: "Propose drivers and attendants for an event (use --confirm to save)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			confirm, _ := cmd.Flags().GetBool("confirm")
			asJSON, _ := cmd.Flags().GetBool("json")

			proposal, err := services.AutoSelect(app.Ctx, app.Database, app.Logger, app.Hooks, eventID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON && !confirm {
				return printJSON(out, proposal)
			}

			if !confirm {
				fmt.Fprintf(out, "\nProposed selection for event %d (not saved):\n\n", eventID)
				printSelection(out, proposal.Driver, proposal.Attendant)
				return nil
			}

			result, err := services.Confirm(app.Ctx, app.Database, app.Logger, app.Hooks, eventID, proposal.Driver, proposal.Attendant)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(out, result)
			}

			fmt.Fprintf(out, "\n✓ Confirmed selection for event %d:\n\n", eventID)
			printSelection(out, result.Driver, result.Attendant)
			return nil
		},
	}

	cmd.Flags().Bool("confirm", false, "Confirm the proposed selection")
	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

// ConfirmCmd creates the confirm command
func ConfirmCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <event_id>",
		Short: "Confirm the drivers and attendants of an event, replacing any previous selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			drivers, _ := cmd.Flags().GetStringSlice("driver")
			attendants, _ := cmd.Flags().GetStringSlice("attendant")

			result, err := services.Confirm(app.Ctx, app.Database, app.Logger, app.Hooks, eventID, drivers, attendants)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Confirmed selection for event %d (%d newly confirmed):\n\n", eventID, len(result.NewlyConfirmed))
			printSelection(out, result.Driver, result.Attendant)
			return nil
		},
	}

	cmd.Flags().StringSlice("driver", nil, "Confirmed drivers (repeat or comma-separate)")
	cmd.Flags().StringSlice("attendant", nil, "Confirmed attendants (repeat or comma-separate)")

	return cmd
}

// UnconfirmCmd creates the unconfirm command
func UnconfirmCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unconfirm <event_id>",
		Short: "Remove every confirmation for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			removed, err := services.Unconfirm(app.Ctx, app.Database, app.Logger, app.Hooks, eventID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Removed %d confirmations from event %d\n\n", removed, eventID)
			return nil
		},
	}
}

// CancelCmd creates the cancel command
func CancelCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <event_id> <username> <driver|attendant>",
		Short: "Cancel a confirmation and promote the next applicant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			result, err := services.CancelConfirmed(app.Ctx, app.Database, app.Logger, app.Hooks, eventID, args[1], args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, result)
			}

			fmt.Fprintf(out, "\n✓ %s\n", result.Message)
			if result.Shortfall > 0 {
				fmt.Fprintf(out, "⚠️  Admins have been notified of the shortfall\n")
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

// ViewSelectionsCmd creates the viewSelections command
func ViewSelectionsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viewSelections <event_id>",
		Short: "Show who is confirmed for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			selections, err := services.GetSelections(app.Ctx, app.Database, app.Logger, eventID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, selections)
			}

			fmt.Fprintf(out, "\nConfirmed for event %d:\n\n", eventID)
			printSelection(out, selections.Driver, selections.Attendant)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

// HistoryCmd creates the history command
func HistoryCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "Show every confirmation a person has held",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			entries, err := services.History(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, entries)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "%s has never been confirmed.\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "\n%d confirmations for %s:\n\n", len(entries), args[0])
			for _, e := range entries {
				date, label := e.EventDate, e.EventLabel
				if date == "" {
					date, label = "(deleted)", fmt.Sprintf("event %d", e.EventID)
				}
				fmt.Fprintf(out, "  %-10s  %-10s %s\n", date, e.Role, label)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

func printSelection(out io.Writer, drivers, attendants []string) {
	fmt.Fprintf(out, "  Drivers:    %s\n", joinOrNone(drivers))
	fmt.Fprintf(out, "  Attendants: %s\n\n", joinOrNone(attendants))
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
