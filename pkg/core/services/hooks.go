package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/metrics"
	"github.com/jakechorley/ride-rota/pkg/notify"
)

// CalendarSync mirrors an event's confirmed selections into an external calendar
type CalendarSync interface {
	UpsertEvent(ctx context.Context, event db.Event, selections []db.Selection) error
	DeleteEvent(ctx context.Context, eventID int64) error
}

// Hooks are the collaborators invoked after a ledger write commits.
// Every field is optional. Hook failures are logged and never fail the operation.
type Hooks struct {
	Notifier notify.Notifier
	Calendar CalendarSync
	Metrics  *metrics.Manager
	Clock    func() time.Time
}

func (h Hooks) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

// notify delivers msg and logs any failure. The error is returned for callers that count
// deliveries; the operations that trigger notifications ignore it.
func (h Hooks) notify(ctx context.Context, logger *zap.Logger, msg notify.Message) error {
	if h.Notifier == nil {
		return nil
	}
	err := h.Notifier.Notify(ctx, msg)
	if err != nil {
		logger.Warn("Failed to deliver notification",
			zap.String("username", msg.Username),
			zap.String("kind", msg.Kind),
			zap.Error(err))
	}
	return err
}

// calendarStore is what the calendar hook needs to render an event
type calendarStore interface {
	GetEvent(ctx context.Context, id int64) (*db.Event, error)
	GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error)
}

func (h Hooks) syncCalendar(ctx context.Context, store calendarStore, logger *zap.Logger, eventID int64) {
	if h.Calendar == nil {
		return
	}

	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		logger.Warn("Failed to load event for calendar sync", zap.Int64("event_id", eventID), zap.Error(err))
		return
	}
	selections, err := store.GetSelections(ctx, eventID)
	if err != nil {
		logger.Warn("Failed to load selections for calendar sync", zap.Int64("event_id", eventID), zap.Error(err))
		return
	}

	if err := h.Calendar.UpsertEvent(ctx, *event, selections); err != nil {
		logger.Warn("Failed to sync calendar event", zap.Int64("event_id", eventID), zap.Error(err))
	}
}

func (h Hooks) removeCalendar(ctx context.Context, logger *zap.Logger, eventID int64) {
	if h.Calendar == nil {
		return
	}
	if err := h.Calendar.DeleteEvent(ctx, eventID); err != nil {
		logger.Warn("Failed to delete calendar event", zap.Int64("event_id", eventID), zap.Error(err))
	}
}

func eventRef(eventID int64) *int64 {
	return &eventID
}
