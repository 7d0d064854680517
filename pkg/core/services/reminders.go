package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/notify"
)

// ReminderStore defines the database operations needed to send event reminders
type ReminderStore interface {
	GetEvent(ctx context.Context, id int64) (*db.Event, error)
	GetSelectionsOnDate(ctx context.Context, date string) ([]db.Selection, error)
	HasNotification(ctx context.Context, username string, eventID int64, kind string) (bool, error)
}

// ReminderResult reports the reminders sent in one run
type ReminderResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	// Failed reminders were not recorded and are retried on the next run
	Failed int `json:"failed"`
}

// SendReminders notifies everyone confirmed for an event dated leadDays after today, for each
// configured lead day. Today is taken in loc. A reminder already recorded for the same person,
// event and kind is not sent again, so runs can repeat safely.
func SendReminders(ctx context.Context, store ReminderStore, logger *zap.Logger, hooks Hooks, leadDays []int, loc *time.Location) (*ReminderResult, error) {
	defer hooks.Metrics.ObserveOperation("reminders", time.Now())

	if loc == nil {
		loc = time.UTC
	}
	now := hooks.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	result := &ReminderResult{}
	events := make(map[int64]*db.Event)

	for _, days := range leadDays {
		if days < 1 {
			return result, fmt.Errorf("%w: reminder lead days must be positive, got %d", model.ErrValidation, days)
		}

		date := today.AddDate(0, 0, days).Format(db.DateLayout)
		kind := model.ReminderKind(days)

		selections, err := store.GetSelectionsOnDate(ctx, date)
		if err != nil {
			return result, fmt.Errorf("failed to fetch selections on %s: %w", date, err)
		}

		logger.Debug("Checking reminders",
			zap.String("date", date),
			zap.String("kind", kind),
			zap.Int("selections", len(selections)))

		for _, s := range selections {
			sent, err := store.HasNotification(ctx, s.Username, s.EventID, kind)
			if err != nil {
				return result, fmt.Errorf("failed to check reminder for %s: %w", s.Username, err)
			}
			if sent {
				result.Skipped++
				continue
			}

			event, ok := events[s.EventID]
			if !ok {
				event, err = store.GetEvent(ctx, s.EventID)
				if err != nil {
					return result, err
				}
				events[s.EventID] = event
			}

			err = hooks.notify(ctx, logger, notify.Message{
				Username: s.Username,
				EventID:  eventRef(s.EventID),
				Kind:     kind,
				Subject:  fmt.Sprintf("Reminder: %s on %s", event.Label, event.Date),
				Body:     reminderBody(event, s.Role, days),
			})
			if err != nil {
				result.Failed++
				continue
			}
			hooks.Metrics.RecordReminder()
			result.Sent++
		}
	}

	logger.Info("Sent reminders",
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

func reminderBody(event *db.Event, role model.Role, days int) string {
	when := "tomorrow"
	if days > 1 {
		when = fmt.Sprintf("in %d days", days)
	}
	body := fmt.Sprintf("You are confirmed as %s for %s %s (%s)", role, event.Label, when, event.Date)
	if event.StartTime != nil {
		body += fmt.Sprintf(", starting at %s", *event.StartTime)
	}
	return body + "."
}
