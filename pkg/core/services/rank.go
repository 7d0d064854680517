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

// RankStore defines the database operations needed to rank applicants
type RankStore interface {
	GetEvent(ctx context.Context, id int64) (*db.Event, error)
	GetApplications(ctx context.Context, eventID int64) ([]db.Application, error)
	GetParticipationStats(ctx context.Context) ([]db.ParticipationStat, error)
}

// RankApplicants orders the applicants for a role on an event by fairness.
// If participation history cannot be loaded the ranking falls back to application order.
func RankApplicants(ctx context.Context, store RankStore, logger *zap.Logger, hooks Hooks, eventID int64, role string) ([]allocator.RankedApplicant, error) {
	defer hooks.Metrics.ObserveOperation("rank", time.Now())

	if err := validateInput(EventRoleInput{EventID: eventID, Role: role}); err != nil {
		return nil, err
	}

	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	applications, err := store.GetApplications(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}

	history := loadHistory(ctx, store, logger, hooks)
	ranked := allocator.RankApplicants(model.Role(role), toApplicants(applications), history)

	logger.Debug("Ranked applicants",
		zap.Int64("event_id", eventID),
		zap.String("role", role),
		zap.Int("count", len(ranked)))

	return ranked, nil
}

// loadHistory aggregates the participation ledger into fairness history.
// A failure degrades to empty history, which ranks purely by application time.
func loadHistory(ctx context.Context, store RankStore, logger *zap.Logger, hooks Hooks) allocator.ParticipationHistory {
	stats, err := store.GetParticipationStats(ctx)
	if err != nil {
		logger.Warn("Participation history unavailable, ranking by application order", zap.Error(err))
		hooks.Metrics.RecordDegradedRanking()
		return allocator.ParticipationHistory{}
	}

	history := make(allocator.ParticipationHistory, len(stats))
	for _, s := range stats {
		history[allocator.HistoryKey{Username: s.Username, Role: s.Role}] = allocator.History{
			Times:           s.Times,
			LastConfirmedAt: s.LastConfirmedAt,
		}
	}
	return history
}

func toApplicants(applications []db.Application) []allocator.Applicant {
	applicants := make([]allocator.Applicant, len(applications))
	for i, a := range applications {
		applicants[i] = allocator.Applicant{
			Username:  a.Username,
			Role:      a.Role,
			AppliedAt: a.CreatedAt,
		}
	}
	return applicants
}
