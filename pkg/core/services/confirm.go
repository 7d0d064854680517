package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/notify"
)

// ConfirmStore defines the database operations needed to confirm and reset selections
type ConfirmStore interface {
	GetEvent(ctx context.Context, id int64) (*db.Event, error)
	GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error)
	ReplaceSelections(ctx context.Context, eventID int64, selections []db.Selection) ([]db.Selection, error)
	DeleteSelections(ctx context.Context, eventID int64) (int, error)
}

// ConfirmResult reports the confirmed selection of an event
type ConfirmResult struct {
	EventID        int64          `json:"event_id"`
	Driver         []string       `json:"driver"`
	Attendant      []string       `json:"attendant"`
	NewlyConfirmed []db.Selection `json:"-"`
}

// Confirm replaces every selection of an event with the given drivers and attendants.
// Duplicate names are collapsed before the capacity check; exceeding a role's capacity
// rejects the whole confirmation with a *model.CapacityError. People confirmed before
// but omitted now are unconfirmed. Newly confirmed people are notified after the write.
func Confirm(ctx context.Context, store ConfirmStore, logger *zap.Logger, hooks Hooks, eventID int64, driver, attendant []string) (*ConfirmResult, error) {
	defer hooks.Metrics.ObserveOperation("confirm", time.Now())

	driver = dedupeNames(driver)
	attendant = dedupeNames(attendant)

	if err := validateInput(ConfirmInput{EventID: eventID, Driver: driver, Attendant: attendant}); err != nil {
		return nil, err
	}
	if overlap := intersect(driver, attendant); len(overlap) > 0 {
		return nil, fmt.Errorf("%w: %s cannot be both driver and attendant", model.ErrValidation, strings.Join(overlap, ", "))
	}

	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := checkCapacity(event, model.RoleDriver, len(driver)); err != nil {
		return nil, err
	}
	if err := checkCapacity(event, model.RoleAttendant, len(attendant)); err != nil {
		return nil, err
	}

	decidedAt := hooks.now()
	selections := make([]db.Selection, 0, len(driver)+len(attendant))
	for _, name := range driver {
		selections = append(selections, db.Selection{EventID: eventID, Username: name, Role: model.RoleDriver, DecidedAt: decidedAt})
	}
	for _, name := range attendant {
		selections = append(selections, db.Selection{EventID: eventID, Username: name, Role: model.RoleAttendant, DecidedAt: decidedAt})
	}

	previous, err := store.ReplaceSelections(ctx, eventID, selections)
	if err != nil {
		return nil, fmt.Errorf("failed to replace selections: %w", err)
	}

	newly := newlyConfirmed(previous, selections)

	logger.Info("Confirmed selection",
		zap.Int64("event_id", eventID),
		zap.Strings("driver", driver),
		zap.Strings("attendant", attendant),
		zap.Int("newly_confirmed", len(newly)))

	hooks.Metrics.RecordConfirmation()
	for _, s := range newly {
		hooks.notify(ctx, logger, notify.Message{
			Username: s.Username,
			EventID:  eventRef(eventID),
			Kind:     model.NotificationKind(model.KindDecidedPrefix, s.Role),
			Subject:  fmt.Sprintf("Confirmed as %s for %s", s.Role, event.Date),
			Body:     fmt.Sprintf("You have been confirmed as %s for %s on %s.", s.Role, event.Label, event.Date),
		})
	}
	hooks.syncCalendar(ctx, store, logger, eventID)

	return &ConfirmResult{
		EventID:        eventID,
		Driver:         driver,
		Attendant:      attendant,
		NewlyConfirmed: newly,
	}, nil
}

// Unconfirm removes every selection of an event and returns how many were removed
func Unconfirm(ctx context.Context, store ConfirmStore, logger *zap.Logger, hooks Hooks, eventID int64) (int, error) {
	defer hooks.Metrics.ObserveOperation("unconfirm", time.Now())

	if eventID <= 0 {
		return 0, fmt.Errorf("%w: event id is required", model.ErrValidation)
	}

	removed, err := store.DeleteSelections(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete selections: %w", err)
	}

	logger.Info("Unconfirmed event", zap.Int64("event_id", eventID), zap.Int("removed", removed))

	hooks.Metrics.RecordUnconfirmation()
	hooks.removeCalendar(ctx, logger, eventID)

	return removed, nil
}

func checkCapacity(event *db.Event, role model.Role, requested int) error {
	limit := event.Capacity(role)
	if requested > limit {
		return &model.CapacityError{Role: role, Limit: limit, Requested: requested}
	}
	return nil
}

// dedupeNames trims names and drops repeats, keeping first occurrences in order
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
	}
	return result
}

func intersect(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, n := range a {
		inA[n] = true
	}
	var both []string
	for _, n := range b {
		if inA[n] {
			both = append(both, n)
		}
	}
	return both
}

// newlyConfirmed returns the selections in current that were not in previous
func newlyConfirmed(previous, current []db.Selection) []db.Selection {
	type key struct {
		username string
		role     model.Role
	}
	before := make(map[key]bool, len(previous))
	for _, s := range previous {
		before[key{s.Username, s.Role}] = true
	}

	var added []db.Selection
	for _, s := range current {
		if !before[key{s.Username, s.Role}] {
			added = append(added, s)
		}
	}
	return added
}
