package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/core/services"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// AddEventCmd creates the addEvent command
func AddEventCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addEvent <date> <label>",
		Short: "Create an event on a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			capD, err := optionalInt(cmd, "drivers")
			if err != nil {
				return err
			}
			capA, err := optionalInt(cmd, "attendants")
			if err != nil {
				return err
			}

			event, err := services.CreateEvent(app.Ctx, app.Database, app.Logger, services.EventInput{
				Date:              args[0],
				Label:             args[1],
				Icon:              iconFlag(cmd),
				StartTime:         optionalString(cmd, "start"),
				EndTime:           optionalString(cmd, "end"),
				CapacityDriver:    capD,
				CapacityAttendant: capA,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Event %d created: %s on %s\n\n", event.ID, eventTitle(event), event.Date)
			return nil
		},
	}

	cmd.Flags().String("icon", "", "Short marker shown before the label, e.g. an emoji")
	cmd.Flags().String("start", "", "Start time (HH:MM)")
	cmd.Flags().String("end", "", "End time (HH:MM)")
	cmd.Flags().Int("drivers", 0, "Driver capacity (default 1)")
	cmd.Flags().Int("attendants", 0, "Attendant capacity (default 1)")

	return cmd
}

// ListEventsCmd creates the listEvents command
func ListEventsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listEvents",
		Short: "List events, optionally within a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			asJSON, _ := cmd.Flags().GetBool("json")

			events, err := services.ListEvents(app.Ctx, app.Database, app.Logger, from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, events)
			}

			if len(events) == 0 {
				fmt.Fprintln(out, "No events found.")
				return nil
			}

			fmt.Fprintf(out, "\nFound %d events:\n\n", len(events))
			for _, e := range events {
				fmt.Fprintf(out, "  %4d  %s  %-30s drivers: %-8s attendants: %s\n",
					e.ID, e.Date, eventTitle(&e), formatCapacity(e.CapacityDriver), formatCapacity(e.CapacityAttendant))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().String("from", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}

// SetCapacityCmd creates the setCapacity command
func SetCapacityCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setCapacity <event_id>",
		Short: "Set the driver and attendant capacity of an event (unset flags reset to 1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			capD, err := optionalInt(cmd, "drivers")
			if err != nil {
				return err
			}
			capA, err := optionalInt(cmd, "attendants")
			if err != nil {
				return err
			}

			event, err := services.SetCapacity(app.Ctx, app.Database, app.Logger, services.CapacityInput{
				EventID:           eventID,
				CapacityDriver:    capD,
				CapacityAttendant: capA,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Event %d capacity: %d driver(s), %d attendant(s)\n\n",
				event.ID, event.Capacity(model.RoleDriver), event.Capacity(model.RoleAttendant))
			return nil
		},
	}

	cmd.Flags().Int("drivers", 0, "Driver capacity")
	cmd.Flags().Int("attendants", 0, "Attendant capacity")

	return cmd
}

// DeleteEventCmd creates the deleteEvent command
func DeleteEventCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteEvent <event_id>",
		Short: "Delete an event and its applications (confirmations stay in history)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			if err := services.DeleteEvent(app.Ctx, app.Database, app.Logger, app.Hooks, eventID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Event %d deleted\n\n", eventID)
			return nil
		},
	}
}

// DefineEventsCmd creates the defineEvents command
func DefineEventsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "defineEvents <from> <to>",
		Short: "Create events from the configured templates between two dates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.DefineEvents(app.Ctx, app.Database, app.Logger, app.Cfg.EventTemplates, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Created %d events (%d already existed)\n\n", len(result.Created), result.Skipped)
			for _, e := range result.Created {
				fmt.Fprintf(out, "  %4d  %s  %s\n", e.ID, e.Date, describeTimes(e))
			}
			if len(result.Created) > 0 {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func describeTimes(e db.Event) string {
	switch {
	case e.StartTime != nil && e.EndTime != nil:
		return fmt.Sprintf("%s (%s-%s)", e.Label, *e.StartTime, *e.EndTime)
	case e.StartTime != nil:
		return fmt.Sprintf("%s (%s)", e.Label, *e.StartTime)
	}
	return e.Label
}
