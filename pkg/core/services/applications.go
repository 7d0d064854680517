package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// ApplicationStore defines the database operations needed to manage applications
type ApplicationStore interface {
	GetEvent(ctx context.Context, id int64) (*db.Event, error)
	db.ApplicationStore
}

// Apply records a person's interest in a role for an event.
// Applying again for the same role is a no-op and returns false; applying for the
// other role while an application exists fails with model.ErrRoleConflict.
func Apply(ctx context.Context, store ApplicationStore, logger *zap.Logger, eventID int64, username, role string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validateInput(ApplicationInput{EventID: eventID, Username: username, Role: role}); err != nil {
		return false, err
	}

	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return false, err
	}

	created, err := store.InsertApplication(ctx, eventID, username, model.Role(role))
	if err != nil {
		return false, fmt.Errorf("failed to apply: %w", err)
	}

	logger.Info("Applied",
		zap.Int64("event_id", eventID),
		zap.String("username", username),
		zap.String("role", role),
		zap.Bool("created", created))

	return created, nil
}

// Withdraw removes a person's application. Any confirmation they hold is left in place.
func Withdraw(ctx context.Context, store ApplicationStore, logger *zap.Logger, eventID int64, username, role string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validateInput(ApplicationInput{EventID: eventID, Username: username, Role: role}); err != nil {
		return false, err
	}

	deleted, err := store.DeleteApplication(ctx, eventID, username, model.Role(role))
	if err != nil {
		return false, fmt.Errorf("failed to withdraw: %w", err)
	}

	logger.Info("Withdrew application",
		zap.Int64("event_id", eventID),
		zap.String("username", username),
		zap.String("role", role),
		zap.Bool("deleted", deleted))

	return deleted, nil
}

// ListApplications returns the applications for an event in the order they were made
func ListApplications(ctx context.Context, store ApplicationStore, logger *zap.Logger, eventID int64) ([]db.Application, error) {
	if eventID <= 0 {
		return nil, fmt.Errorf("%w: event id is required", model.ErrValidation)
	}

	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	applications, err := store.GetApplications(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}

	logger.Debug("Listed applications", zap.Int64("event_id", eventID), zap.Int("count", len(applications)))
	return applications, nil
}

// DayApplicationStore defines the database operations needed to list a day's applications
type DayApplicationStore interface {
	ListEvents(ctx context.Context, from, to string) ([]db.Event, error)
	GetApplications(ctx context.Context, eventID int64) ([]db.Application, error)
}

// EventApplications is an event together with its applications
type EventApplications struct {
	Event        db.Event         `json:"event"`
	Applications []db.Application `json:"applications"`
}

// ListApplicationsOnDate returns every event on date with its applications, in event order.
// Events nobody has applied for are included with an empty list.
func ListApplicationsOnDate(ctx context.Context, store DayApplicationStore, logger *zap.Logger, date string) ([]EventApplications, error) {
	if _, err := time.Parse(db.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", model.ErrValidation, date)
	}

	events, err := store.ListEvents(ctx, date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events on %s: %w", date, err)
	}

	result := make([]EventApplications, 0, len(events))
	for _, event := range events {
		applications, err := store.GetApplications(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch applications for event %d: %w", event.ID, err)
		}
		if applications == nil {
			applications = []db.Application{}
		}
		result = append(result, EventApplications{Event: event, Applications: applications})
	}

	logger.Debug("Listed applications by date", zap.String("date", date), zap.Int("events", len(result)))
	return result, nil
}
