package calendarclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

const defaultDuration = time.Hour

// Client mirrors confirmed selections into a Google Calendar
type Client struct {
	service    *calendar.Service
	calendarID string
	location   *time.Location
}

// NewClient creates a Calendar client writing to calendarID.
// Event times are interpreted in loc.
func NewClient(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token, calendarID string, loc *time.Location) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}

	return &Client{
		service:    service,
		calendarID: calendarID,
		location:   loc,
	}, nil
}

// EventID returns the calendar event ID used for a rota event.
// Calendar IDs allow only base32hex characters, which "rota" and digits satisfy.
func EventID(eventID int64) string {
	return fmt.Sprintf("rota%06d", eventID)
}

// UpsertEvent writes the event with its confirmed drivers and attendants,
// creating it when it does not exist yet
func (c *Client) UpsertEvent(ctx context.Context, event db.Event, selections []db.Selection) error {
	calEvent, err := buildEvent(event, selections, c.location)
	if err != nil {
		return err
	}

	_, err = c.service.Events.Update(c.calendarID, calEvent.Id, calEvent).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("failed to update calendar event %s: %w", calEvent.Id, err)
	}

	if _, err := c.service.Events.Insert(c.calendarID, calEvent).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to insert calendar event %s: %w", calEvent.Id, err)
	}
	return nil
}

// DeleteEvent removes the calendar entry of an event. A missing entry is not an error.
func (c *Client) DeleteEvent(ctx context.Context, eventID int64) error {
	err := c.service.Events.Delete(c.calendarID, EventID(eventID)).Context(ctx).Do()
	if err != nil && !isStatus(err, http.StatusNotFound) && !isStatus(err, http.StatusGone) {
		return fmt.Errorf("failed to delete calendar event %s: %w", EventID(eventID), err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// buildEvent renders a rota event as a calendar event. Events without a start time
// become all-day entries; a missing end time defaults to one hour after the start.
func buildEvent(event db.Event, selections []db.Selection, loc *time.Location) (*calendar.Event, error) {
	calEvent := &calendar.Event{
		Id:          EventID(event.ID),
		Summary:     event.Label,
		Description: describeSelections(selections),
	}

	date, err := time.ParseInLocation(db.DateLayout, event.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid event date %q: %w", event.Date, err)
	}

	if event.StartTime == nil || *event.StartTime == "" {
		calEvent.Start = &calendar.EventDateTime{Date: date.Format(db.DateLayout)}
		calEvent.End = &calendar.EventDateTime{Date: date.AddDate(0, 0, 1).Format(db.DateLayout)}
		return calEvent, nil
	}

	start, err := clockOn(date, *event.StartTime, loc)
	if err != nil {
		return nil, err
	}
	end := start.Add(defaultDuration)
	if event.EndTime != nil && *event.EndTime != "" {
		if end, err = clockOn(date, *event.EndTime, loc); err != nil {
			return nil, err
		}
	}

	calEvent.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()}
	calEvent.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()}
	return calEvent, nil
}

// clockOn combines a date with an "HH:MM" clock time
func clockOn(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func describeSelections(selections []db.Selection) string {
	var drivers, attendants []string
	for _, s := range selections {
		switch s.Role {
		case model.RoleDriver:
			drivers = append(drivers, s.Username)
		case model.RoleAttendant:
			attendants = append(attendants, s.Username)
		}
	}
	return fmt.Sprintf("Drivers: %s\nAttendants: %s", joinOrNone(drivers), joinOrNone(attendants))
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
