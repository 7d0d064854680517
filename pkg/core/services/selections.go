package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// SelectionsStore defines the database operations needed to read the participation ledger
type SelectionsStore interface {
	GetEvent(ctx context.Context, id int64) (*db.Event, error)
	GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error)
	GetSelectionHistory(ctx context.Context, username string) ([]db.SelectionHistoryEntry, error)
}

// EventSelections lists the people confirmed for an event per role, in decision order
type EventSelections struct {
	EventID   int64    `json:"event_id"`
	Driver    []string `json:"driver"`
	Attendant []string `json:"attendant"`
}

// GetSelections returns the confirmed drivers and attendants of an event
func GetSelections(ctx context.Context, store SelectionsStore, logger *zap.Logger, eventID int64) (*EventSelections, error) {
	if eventID <= 0 {
		return nil, fmt.Errorf("%w: event id is required", model.ErrValidation)
	}

	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	selections, err := store.GetSelections(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch selections: %w", err)
	}

	result := &EventSelections{EventID: eventID, Driver: []string{}, Attendant: []string{}}
	for _, s := range selections {
		switch s.Role {
		case model.RoleDriver:
			result.Driver = append(result.Driver, s.Username)
		case model.RoleAttendant:
			result.Attendant = append(result.Attendant, s.Username)
		}
	}

	logger.Debug("Fetched selections", zap.Int64("event_id", eventID), zap.Int("count", len(selections)))
	return result, nil
}

// History returns every confirmation a person has held, newest event first.
// Confirmations for deleted events are included with an empty date and label.
func History(ctx context.Context, store SelectionsStore, logger *zap.Logger, username string) ([]db.SelectionHistoryEntry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", model.ErrValidation)
	}

	entries, err := store.GetSelectionHistory(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	logger.Debug("Fetched history", zap.String("username", username), zap.Int("count", len(entries)))
	return entries, nil
}
