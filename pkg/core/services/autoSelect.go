package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/allocator"
	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// AutoSelectStore defines the database operations needed to propose a selection
type AutoSelectStore interface {
	RankStore
	GetUsers(ctx context.Context) ([]db.User, error)
}

// AutoSelect proposes drivers and attendants for an event without persisting anything.
// Drivers are the top-ranked applicants up to capacity; attendants follow the ranking but
// prefer a familiar attendant when every picked driver is unfamiliar.
func AutoSelect(ctx context.Context, store AutoSelectStore, logger *zap.Logger, hooks Hooks, eventID int64) (*allocator.Proposal, error) {
	defer hooks.Metrics.ObserveOperation("auto_select", time.Now())

	if eventID <= 0 {
		return nil, fmt.Errorf("%w: event id is required", model.ErrValidation)
	}

	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	applications, err := store.GetApplications(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}

	history := loadHistory(ctx, store, logger, hooks)
	ranked := allocator.RankByRole(toApplicants(applications), history)

	familiarity := loadFamiliarity(ctx, store, logger)
	drivers := allocator.AttachFamiliarity(ranked[model.RoleDriver], familiarity)
	attendants := allocator.AttachFamiliarity(ranked[model.RoleAttendant], familiarity)

	capD := event.Capacity(model.RoleDriver)
	capA := event.Capacity(model.RoleAttendant)
	proposal := allocator.Propose(drivers, attendants, capD, capA)

	logger.Debug("Proposed selection",
		zap.Int64("event_id", eventID),
		zap.Int("capacity_driver", capD),
		zap.Int("capacity_attendant", capA),
		zap.Strings("driver", proposal.Driver),
		zap.Strings("attendant", proposal.Attendant))

	return &proposal, nil
}

// loadFamiliarity maps usernames to familiarity. If users cannot be loaded everyone is
// treated as unknown, which only weakens the pairing preference.
func loadFamiliarity(ctx context.Context, store AutoSelectStore, logger *zap.Logger) map[string]model.Familiarity {
	users, err := store.GetUsers(ctx)
	if err != nil {
		logger.Warn("Failed to load users, treating familiarity as unknown", zap.Error(err))
		return map[string]model.Familiarity{}
	}

	familiarity := make(map[string]model.Familiarity, len(users))
	for _, u := range users {
		familiarity[u.Username] = u.Familiar
	}
	return familiarity
}
