package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/internal/config"
	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// CreateEvent validates and stores a new event
func CreateEvent(ctx context.Context, store db.EventStore, logger *zap.Logger, input EventInput) (*db.Event, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	event := input.toEvent()
	if err := store.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	logger.Info("Created event",
		zap.Int64("event_id", event.ID),
		zap.String("date", event.Date),
		zap.String("label", event.Label))

	return event, nil
}

// ListEvents returns events dated within [from, to]. Empty bounds are open.
func ListEvents(ctx context.Context, store db.EventStore, logger *zap.Logger, from, to string) ([]db.Event, error) {
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse(db.DateLayout, bound); err != nil {
			return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", model.ErrValidation, bound)
		}
	}

	events, err := store.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	logger.Debug("Listed events", zap.String("from", from), zap.String("to", to), zap.Int("count", len(events)))
	return events, nil
}

// SetCapacity replaces both role capacities of an event. A nil capacity resets the role to the default.
// Capacity is not checked against existing selections; it only limits future confirmations.
func SetCapacity(ctx context.Context, store db.EventStore, logger *zap.Logger, input CapacityInput) (*db.Event, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if err := store.UpdateEventCapacity(ctx, input.EventID, input.CapacityDriver, input.CapacityAttendant); err != nil {
		return nil, fmt.Errorf("failed to update capacity: %w", err)
	}

	event, err := store.GetEvent(ctx, input.EventID)
	if err != nil {
		return nil, err
	}

	logger.Info("Updated event capacity",
		zap.Int64("event_id", event.ID),
		zap.Int("capacity_driver", event.Capacity(model.RoleDriver)),
		zap.Int("capacity_attendant", event.Capacity(model.RoleAttendant)))

	return event, nil
}

// DeleteEvent removes an event and its applications. Selections are kept as participation history.
func DeleteEvent(ctx context.Context, store db.EventStore, logger *zap.Logger, hooks Hooks, eventID int64) error {
	if eventID <= 0 {
		return fmt.Errorf("%w: event id is required", model.ErrValidation)
	}

	if err := store.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	logger.Info("Deleted event", zap.Int64("event_id", eventID))
	hooks.removeCalendar(ctx, logger, eventID)

	return nil
}

// DefineEventsResult reports the events generated from templates
type DefineEventsResult struct {
	Created []db.Event `json:"created"`
	Skipped int        `json:"skipped"`
}

// DefineEvents expands every event template over the inclusive date window [from, to].
// Occurrences whose (date, label) already exists are skipped, so the operation can be rerun.
func DefineEvents(ctx context.Context, store db.EventStore, logger *zap.Logger, templates []config.EventTemplate, from, to string) (*DefineEventsResult, error) {
	if len(templates) == 0 {
		return nil, errors.New("no event templates configured")
	}

	start, err := time.Parse(db.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from date %q must be YYYY-MM-DD", model.ErrValidation, from)
	}
	end, err := time.Parse(db.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to date %q must be YYYY-MM-DD", model.ErrValidation, to)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: to date %s is before from date %s", model.ErrValidation, to, from)
	}

	existing, err := store.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing events: %w", err)
	}

	type dateLabel struct{ date, label string }
	seen := make(map[dateLabel]bool, len(existing))
	for _, e := range existing {
		seen[dateLabel{e.Date, e.Label}] = true
	}

	result := &DefineEventsResult{Created: []db.Event{}}
	for i, tmpl := range templates {
		rule, err := rrule.StrToRRule(tmpl.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for template %d: %w", i, err)
		}
		rule.DTStart(start)

		occurrences := rule.Between(start, end.Add(24*time.Hour-time.Nanosecond), true)
		logger.Debug("Expanded event template",
			zap.Int("index", i),
			zap.String("label", tmpl.Label),
			zap.String("rrule", tmpl.RRule),
			zap.Int("occurrences", len(occurrences)))

		for _, occurrence := range occurrences {
			input := templateInput(tmpl, occurrence.Format(db.DateLayout))
			key := dateLabel{input.Date, input.Label}
			if seen[key] {
				result.Skipped++
				continue
			}

			event, err := CreateEvent(ctx, store, logger, input)
			if err != nil {
				return result, fmt.Errorf("failed to create %s on %s: %w", input.Label, input.Date, err)
			}
			seen[key] = true
			result.Created = append(result.Created, *event)
		}
	}

	logger.Info("Defined events",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

func templateInput(tmpl config.EventTemplate, date string) EventInput {
	input := EventInput{
		Date:              date,
		Label:             tmpl.Label,
		Icon:              tmpl.Icon,
		CapacityDriver:    tmpl.CapacityDriver,
		CapacityAttendant: tmpl.CapacityAttendant,
	}
	if tmpl.StartTime != "" {
		startTime := tmpl.StartTime
		input.StartTime = &startTime
	}
	if tmpl.EndTime != "" {
		endTime := tmpl.EndTime
		input.EndTime = &endTime
	}
	return input
}
